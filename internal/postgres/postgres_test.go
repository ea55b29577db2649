package postgres_test

import (
	"context"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/postgres"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

const (
	testRoom   = int64(9001)
	closedRoom = int64(9002)
	testMovie  = int64(9001)
	testUser   = int64(9001)
)

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("WATCHPARTY_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("WATCHPARTY_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, postgres.Config{DSN: dsn, MaxConns: 8, ApplicationName: "watchparty-test"})
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	require.NoError(t, postgres.Seed(ctx, pool,
		[]domain.Movie{{ID: testMovie, Title: "Interstellar", Genre: "Sci-Fi", DurationMin: 169, Rating: 8.7}},
		[]domain.Room{
			{ID: testRoom, Name: "test room", MovieID: testMovie, Status: domain.RoomActive},
			{ID: closedRoom, Name: "closed room", MovieID: testMovie, Status: domain.RoomClosed},
		},
		[]domain.User{{ID: testUser, Name: "tester"}},
	))

	_, err = pool.Exec(ctx, `DELETE FROM messages WHERE room_id IN ($1, $2)`, testRoom, closedRoom)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `UPDATE rooms SET last_seq = 0 WHERE id IN ($1, $2)`, testRoom, closedRoom)
	require.NoError(t, err)
	return pool
}

func TestMessageLog_ConcurrentAppend(t *testing.T) {
	const n = 40
	pool := newPool(t)
	log := postgres.NewMessageLog(pool)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := log.Append(ctx, testRoom, testUser, " hi ")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seq, err := log.ReadSince(ctx, testRoom, 0, n+5)
	require.NoError(t, err)
	msgs := slices.Collect(seq)
	require.Len(t, msgs, n)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)
		assert.Equal(t, "hi", m.Body)
	}

	seq, err = log.ReadSince(ctx, testRoom, n-2, 10)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 2)
}

func TestMessageLog_Rejects(t *testing.T) {
	pool := newPool(t)
	log := postgres.NewMessageLog(pool)
	ctx := context.Background()

	_, err := log.Append(ctx, testRoom, testUser, "  ")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = log.Append(ctx, closedRoom, testUser, "hi")
	assert.ErrorIs(t, err, domain.ErrRoomClosed)
	_, err = log.Append(ctx, 424242, testUser, "hi")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = log.ReadSince(ctx, 424242, 0, 10)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCatalog(t *testing.T) {
	pool := newPool(t)
	c := postgres.NewCatalog(pool)
	ctx := context.Background()

	rm, err := c.Room(ctx, closedRoom)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomClosed, rm.Status)

	m, err := c.Movie(ctx, testMovie)
	require.NoError(t, err)
	assert.Equal(t, 169, m.DurationMin)

	u, err := c.User(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "tester", u.Name)

	_, err = c.User(ctx, 424242)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = c.Movie(ctx, 424242)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	rooms, err := c.Rooms(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rooms)
}
