package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cwrk-planet/watchparty/internal/domain"
)

type Handler func(domain.Event)

// Bus разносит события комнат. Доставка best-effort: пропущенное событие
// клиент восполняет перечитыванием по курсору.
type Bus interface {
	Publish(ctx context.Context, ev domain.Event) error
	Subscribe(roomID int64, fn Handler) (unsubscribe func(), err error)
	Close() error
}

func New(t domain.EventType, roomID, userID, seq int64) domain.Event {
	return domain.Event{
		ID:     uuid.NewString(),
		Type:   t,
		RoomID: roomID,
		UserID: userID,
		Seq:    seq,
		At:     time.Now().UTC(),
	}
}
