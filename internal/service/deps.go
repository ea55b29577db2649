package service

import (
	"context"
	"iter"

	"github.com/cwrk-planet/watchparty/internal/domain"
)

// MessageStore — лог сообщений комнат (память, Postgres или Redis).
type MessageStore interface {
	Append(ctx context.Context, roomID, userID int64, body string) (domain.Message, error)
	ReadSince(ctx context.Context, roomID, after int64, limit int) (iter.Seq[domain.Message], error)
}

// Catalog: справочники, которые заводятся вне ядра.
type Catalog interface {
	Rooms(ctx context.Context) ([]domain.Room, error)
	Room(ctx context.Context, id int64) (domain.Room, error)
	Users(ctx context.Context) ([]domain.User, error)
	User(ctx context.Context, id int64) (domain.User, error)
	Movies(ctx context.Context) ([]domain.Movie, error)
	Movie(ctx context.Context, id int64) (domain.Movie, error)
}
