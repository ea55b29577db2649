package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/watchparty/internal/domain"
)

//go:embed schema.sql
var schema string

// Migrate применяет схему. Скрипт идемпотентен.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

// Seed заливает справочники одним батчем; существующие строки не трогает.
func Seed(ctx context.Context, pool *pgxpool.Pool, movies []domain.Movie, rooms []domain.Room, users []domain.User) error {
	b := &pgx.Batch{}
	for _, m := range movies {
		b.Queue(querySeedMovie, m.ID, m.Title, m.Genre, m.DurationMin, m.Rating, m.PosterEmoji)
	}
	for _, r := range rooms {
		status := r.Status
		if status == "" {
			status = domain.RoomActive
		}
		var createdAt any
		if !r.CreatedAt.IsZero() {
			createdAt = r.CreatedAt
		}
		b.Queue(querySeedRoom, r.ID, r.Name, r.MovieID, r.PosterEmoji, string(status), createdAt)
	}
	for _, u := range users {
		b.Queue(querySeedUser, u.ID, u.Name, u.AvatarEmoji)
	}
	if b.Len() == 0 {
		return nil
	}

	if err := pool.SendBatch(ctx, b).Close(); err != nil {
		return unavailable(fmt.Sprintf("seed %d rows", b.Len()), err)
	}
	return nil
}
