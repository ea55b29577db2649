package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

const (
	DefaultTimeout = 60 * time.Second
	shardCount     = 32
)

type RoomSource interface {
	Room(ctx context.Context, id int64) (domain.Room, error)
}

// Tracker хранит для каждого пользователя одно поле с текущей комнатой.
// Заполненность комнат выводится из этих полей, поэтому пользователь не может
// оказаться в двух комнатах сразу или потеряться при переходе.
type Tracker struct {
	rooms   RoomSource
	timeout time.Duration
	now     func() time.Time

	shards [shardCount]shard
}

type shard struct {
	mu    sync.RWMutex
	users map[int64]*entry
}

type entry struct {
	mu       sync.Mutex
	roomID   int64
	status   domain.UserStatus
	lastSeen time.Time
}

// Expiry — пользователь, снятый свипом по таймауту. RoomID == 0, если он не был в комнате.
type Expiry struct {
	UserID int64
	RoomID int64
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

func NewTracker(rooms RoomSource, opts ...Option) *Tracker {
	t := &Tracker{
		rooms:   rooms,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for i := range t.shards {
		t.shards[i].users = make(map[int64]*entry)
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Join переводит пользователя в roomID и возвращает комнату, из которой он ушёл (0, если ни из какой).
func (t *Tracker) Join(ctx context.Context, userID, roomID int64) (int64, error) {
	room, err := t.rooms.Room(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if !room.Active() {
		return 0, fmt.Errorf("%w: room %d: %w", errs.ErrNotFound, roomID, domain.ErrRoomClosed)
	}

	e := t.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.roomID
	e.roomID = roomID
	e.status = domain.UserOnline
	e.lastSeen = t.now()

	return prev, nil
}

// Leave идемпотентен: повторный вызов вернёт left == false.
func (t *Tracker) Leave(userID int64) (prev int64, left bool) {
	e := t.lookup(userID)
	if e == nil {
		return 0, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev = e.roomID
	e.roomID = 0
	return prev, prev != 0
}

// Disconnect делает то же, что свип по таймауту: offline и выход из комнаты.
func (t *Tracker) Disconnect(userID int64) (prev int64, left bool) {
	e := t.lookup(userID)
	if e == nil {
		return 0, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev = e.roomID
	e.roomID = 0
	e.status = domain.UserOffline
	return prev, prev != 0
}

func (t *Tracker) Heartbeat(userID int64) {
	e := t.entry(userID)
	e.mu.Lock()
	e.status = domain.UserOnline
	e.lastSeen = t.now()
	e.mu.Unlock()
}

func (t *Tracker) Lookup(userID int64) domain.Presence {
	p := domain.Presence{UserID: userID, Status: domain.UserOffline}
	e := t.lookup(userID)
	if e == nil {
		return p
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	p.RoomID = e.roomID
	p.Status = e.status
	p.LastSeen = e.lastSeen
	return p
}

// WithMembership вызывает fn, только если пользователь сейчас в roomID, и держит его там,
// пока fn не вернётся: Join, Leave и свип для этого пользователя ждут. fn не должна
// обращаться к трекеру за тем же пользователем.
func (t *Tracker) WithMembership(userID, roomID int64, fn func() error) error {
	e := t.lookup(userID)
	if e == nil {
		return fmt.Errorf("user %d, room %d: %w", userID, roomID, domain.ErrNotInRoom)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.roomID != roomID {
		return fmt.Errorf("user %d, room %d: %w", userID, roomID, domain.ErrNotInRoom)
	}
	return fn()
}

// Snapshot возвращает пользователей комнаты по возрастанию id.
func (t *Tracker) Snapshot(roomID int64) []int64 {
	var out []int64
	t.each(func(userID int64, e *entry) {
		if e.roomID == roomID {
			out = append(out, userID)
		}
	})
	slices.Sort(out)
	return out
}

// Occupancy считает зрителей всех комнат за один проход, каждый пользователь читается ровно один раз.
func (t *Tracker) Occupancy() map[int64]int {
	out := make(map[int64]int)
	t.each(func(_ int64, e *entry) {
		if e.roomID != 0 {
			out[e.roomID]++
		}
	})
	return out
}

// Sweep переводит в offline всех, кто молчит дольше таймаута, и убирает их из комнат.
func (t *Tracker) Sweep(now time.Time) []Expiry {
	var expired []Expiry
	t.each(func(userID int64, e *entry) {
		if e.status != domain.UserOnline || now.Sub(e.lastSeen) <= t.timeout {
			return
		}
		expired = append(expired, Expiry{UserID: userID, RoomID: e.roomID})
		e.status = domain.UserOffline
		e.roomID = 0
	})
	return expired
}

// Run запускает свип по тикеру до отмены контекста.
func (t *Tracker) Run(ctx context.Context, interval time.Duration, onExpire func([]Expiry)) error {
	if interval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			expired := t.Sweep(t.now())
			if len(expired) == 0 {
				continue
			}
			slog.Debug("presence sweep", "expired", len(expired))
			if onExpire != nil {
				onExpire(expired)
			}
		}
	}
}

func (t *Tracker) shardFor(userID int64) *shard {
	return &t.shards[uint64(userID)%shardCount]
}

func (t *Tracker) lookup(userID int64) *entry {
	s := t.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID]
}

func (t *Tracker) entry(userID int64) *entry {
	if e := t.lookup(userID); e != nil {
		return e
	}

	s := t.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[userID]
	if !ok {
		e = &entry{status: domain.UserOffline}
		s.users[userID] = e
	}
	return e
}

// each вызывает fn под замком записи пользователя. Замок шарда держится только на время копирования.
func (t *Tracker) each(fn func(userID int64, e *entry)) {
	type item struct {
		id int64
		e  *entry
	}
	var batch []item
	for i := range t.shards {
		s := &t.shards[i]
		batch = batch[:0]
		s.mu.RLock()
		for id, e := range s.users {
			batch = append(batch, item{id, e})
		}
		s.mu.RUnlock()

		for _, it := range batch {
			it.e.mu.Lock()
			fn(it.id, it.e)
			it.e.mu.Unlock()
		}
	}
}
