package memory

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

type RoomSource interface {
	Room(ctx context.Context, id int64) (domain.Room, error)
}

// MessageLog — лог сообщений в памяти процесса. Append сериализуется мьютексом комнаты,
// поэтому Seq в комнате идут подряд с 1 и совпадают с индексом+1.
type MessageLog struct {
	rooms RoomSource
	now   func() time.Time

	mu   sync.RWMutex
	logs map[int64]*roomLog
}

type roomLog struct {
	mu   sync.RWMutex
	msgs []domain.Message
}

func NewMessageLog(rooms RoomSource, now func() time.Time) *MessageLog {
	if now == nil {
		now = time.Now
	}
	return &MessageLog{
		rooms: rooms,
		now:   now,
		logs:  make(map[int64]*roomLog),
	}
}

func (l *MessageLog) Append(ctx context.Context, roomID, userID int64, body string) (domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}
	if err := l.checkWritable(ctx, roomID); err != nil {
		return domain.Message{}, err
	}

	rl := l.logFor(roomID)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	msg := domain.Message{
		Seq:       int64(len(rl.msgs)) + 1,
		RoomID:    roomID,
		UserID:    userID,
		Body:      body,
		CreatedAt: l.now().UTC(),
	}
	rl.msgs = append(rl.msgs, msg)

	return msg, nil
}

// ReadSince отдаёт сообщения с Seq > after по возрастанию, не больше limit.
// Последовательность построена на снимке лога и может быть пройдена повторно.
func (l *MessageLog) ReadSince(ctx context.Context, roomID, after int64, limit int) (iter.Seq[domain.Message], error) {
	if after < 0 {
		return nil, domain.ErrInvalidCursor
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive: %w", errs.ErrInvalidInput)
	}
	if _, err := l.rooms.Room(ctx, roomID); err != nil {
		return nil, err
	}

	l.mu.RLock()
	rl := l.logs[roomID]
	l.mu.RUnlock()
	if rl == nil {
		return emptySeq, nil
	}

	// опубликованный префикс лога не меняется, поэтому читать его можно без блокировки
	rl.mu.RLock()
	snapshot := rl.msgs[:len(rl.msgs):len(rl.msgs)]
	rl.mu.RUnlock()

	if after >= int64(len(snapshot)) {
		return emptySeq, nil
	}
	end := min(int(after)+limit, len(snapshot))
	page := snapshot[after:end]

	return func(yield func(domain.Message) bool) {
		for _, m := range page {
			if !yield(m) {
				return
			}
		}
	}, nil
}

func (l *MessageLog) checkWritable(ctx context.Context, roomID int64) error {
	room, err := l.rooms.Room(ctx, roomID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("%w: room %d does not exist", errs.ErrInvalidInput, roomID)
		}
		return err
	}
	if !room.Active() {
		return fmt.Errorf("%w: room %d: %w", errs.ErrInvalidInput, roomID, domain.ErrRoomClosed)
	}
	return nil
}

func (l *MessageLog) logFor(roomID int64) *roomLog {
	l.mu.RLock()
	rl, ok := l.logs[roomID]
	l.mu.RUnlock()
	if ok {
		return rl
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if rl, ok = l.logs[roomID]; !ok {
		rl = &roomLog{}
		l.logs[roomID] = rl
	}
	return rl
}

func emptySeq(func(domain.Message) bool) {}
