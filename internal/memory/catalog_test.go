package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/memory"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := memory.NewCatalog(
		[]domain.Movie{{ID: 2, Title: "Dune"}, {ID: 1, Title: "Interstellar"}},
		[]domain.Room{
			{ID: 1, Name: "old", CreatedAt: base},
			{ID: 2, Name: "new", CreatedAt: base.Add(time.Hour)},
		},
		[]domain.User{{ID: 2, Name: "bob"}, {ID: 1, Name: "alice"}},
	)

	rooms, err := c.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, int64(2), rooms[0].ID, "newest first")
	assert.Equal(t, domain.RoomActive, rooms[1].Status, "status defaults to active")

	movies, err := c.Movies(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Interstellar", movies[0].Title)

	users, err := c.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", users[0].Name)

	_, err = c.Room(ctx, 42)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = c.User(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = c.Movie(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrMovieNotFound)
}
