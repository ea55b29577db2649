package events

import (
	"context"
	"errors"
	"sync"

	"github.com/cwrk-planet/watchparty/internal/domain"
)

var ErrClosed = errors.New("event bus closed")

// Local: шина внутри процесса. Обработчики вызываются синхронно в Publish и не должны блокироваться.
type Local struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[int64]map[uint64]Handler
	closed bool
}

func NewLocal() *Local {
	return &Local{subs: make(map[int64]map[uint64]Handler)}
}

func (b *Local) Publish(_ context.Context, ev domain.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(b.subs[ev.RoomID]))
	for _, h := range b.subs[ev.RoomID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (b *Local) Subscribe(roomID int64, fn Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	b.nextID++
	id := b.nextID
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[uint64]Handler)
	}
	b.subs[roomID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[roomID], id)
			if len(b.subs[roomID]) == 0 {
				delete(b.subs, roomID)
			}
		})
	}, nil
}

func (b *Local) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[int64]map[uint64]Handler)
	return nil
}
