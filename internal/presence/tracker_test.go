package presence_test

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/memory"
	"github.com/cwrk-planet/watchparty/internal/presence"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTracker(t *testing.T, opts ...presence.Option) (*presence.Tracker, *fakeClock) {
	t.Helper()
	catalog := memory.NewCatalog(nil, []domain.Room{
		{ID: 1, Name: "R1", Status: domain.RoomActive},
		{ID: 2, Name: "R2", Status: domain.RoomActive},
		{ID: 3, Name: "R3", Status: domain.RoomActive},
		{ID: 9, Name: "gone", Status: domain.RoomClosed},
	}, nil)
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]presence.Option{presence.WithClock(clock.Now)}, opts...)
	return presence.NewTracker(catalog, opts...), clock
}

func TestJoin_MovesUserBetweenRooms(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)

	prev, err := tr.Join(ctx, 100, 1)
	require.NoError(t, err)
	assert.Zero(t, prev)

	prev, err = tr.Join(ctx, 100, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), prev)

	assert.Empty(t, tr.Snapshot(1))
	assert.Equal(t, []int64{100}, tr.Snapshot(2))
	assert.Equal(t, map[int64]int{2: 1}, tr.Occupancy())

	p := tr.Lookup(100)
	assert.Equal(t, domain.UserOnline, p.Status)
	assert.Equal(t, int64(2), p.RoomID)
}

func TestJoin_MissingOrClosedRoom(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)

	_, err := tr.Join(ctx, 100, 42)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = tr.Join(ctx, 100, 9)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrRoomClosed)

	assert.False(t, tr.Lookup(100).InRoom())
}

func TestLeave_Idempotent(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)

	_, left := tr.Leave(100)
	assert.False(t, left, "unknown user")

	_, err := tr.Join(ctx, 100, 1)
	require.NoError(t, err)

	prev, left := tr.Leave(100)
	assert.True(t, left)
	assert.Equal(t, int64(1), prev)

	_, left = tr.Leave(100)
	assert.False(t, left)
	assert.Empty(t, tr.Occupancy())
}

func TestSweep_ExpiresSilentUsers(t *testing.T) {
	ctx := context.Background()
	tr, clock := newTracker(t, presence.WithTimeout(time.Minute))

	_, err := tr.Join(ctx, 1, 1)
	require.NoError(t, err)
	_, err = tr.Join(ctx, 2, 1)
	require.NoError(t, err)
	tr.Heartbeat(3)

	clock.Advance(40 * time.Second)
	tr.Heartbeat(2)
	assert.Empty(t, tr.Sweep(clock.Now()))

	clock.Advance(30 * time.Second)
	expired := tr.Sweep(clock.Now())
	assert.ElementsMatch(t, []presence.Expiry{{UserID: 1, RoomID: 1}, {UserID: 3, RoomID: 0}}, expired)

	assert.Equal(t, domain.UserOffline, tr.Lookup(1).Status)
	assert.False(t, tr.Lookup(1).InRoom())
	assert.Equal(t, []int64{2}, tr.Snapshot(1))

	assert.Empty(t, tr.Sweep(clock.Now()), "offline users are not expired twice")
}

func TestRun_CallsOnExpire(t *testing.T) {
	catalog := memory.NewCatalog(nil, []domain.Room{{ID: 1, Status: domain.RoomActive}}, nil)
	tr := presence.NewTracker(catalog, presence.WithTimeout(time.Millisecond))

	_, err := tr.Join(context.Background(), 7, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []presence.Expiry, 1)
	done := make(chan error, 1)
	go func() {
		done <- tr.Run(ctx, 5*time.Millisecond, func(e []presence.Expiry) {
			select {
			case got <- e:
			default:
			}
		})
	}()

	select {
	case e := <-got:
		assert.Equal(t, []presence.Expiry{{UserID: 7, RoomID: 1}}, e)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not fire")
	}

	cancel()
	require.NoError(t, <-done)
}

// Пока пользователи прыгают между комнатами, сумма зрителей всегда равна числу пользователей.
func TestOccupancy_ConsistentUnderConcurrentMoves(t *testing.T) {
	const users = 50
	ctx := context.Background()
	tr, _ := newTracker(t)

	for u := int64(1); u <= users; u++ {
		_, err := tr.Join(ctx, u, 1)
		require.NoError(t, err)
	}

	var stop atomic.Bool
	var wg sync.WaitGroup
	for u := int64(1); u <= users; u++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_, err := tr.Join(ctx, u, int64(rand.IntN(3)+1))
				assert.NoError(t, err)
			}
		}()
	}

	var checks sync.WaitGroup
	checks.Add(1)
	go func() {
		defer checks.Done()
		for !stop.Load() {
			total := 0
			for _, n := range tr.Occupancy() {
				total += n
			}
			if total != users {
				t.Errorf("occupancy total = %d, want %d", total, users)
				return
			}
		}
	}()

	wg.Wait()
	stop.Store(true)
	checks.Wait()

	total := 0
	for room := int64(1); room <= 3; room++ {
		total += len(tr.Snapshot(room))
	}
	assert.Equal(t, users, total)
}

func TestDisconnect_MatchesTimeoutPath(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)

	_, err := tr.Join(ctx, 5, 2)
	require.NoError(t, err)

	prev, left := tr.Disconnect(5)
	assert.True(t, left)
	assert.Equal(t, int64(2), prev)

	p := tr.Lookup(5)
	assert.Equal(t, domain.UserOffline, p.Status)
	assert.False(t, p.InRoom())

	_, left = tr.Disconnect(5)
	assert.False(t, left)
}

func TestWithMembership(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)

	called := false
	err := tr.WithMembership(7, 1, func() error { called = true; return nil })
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
	assert.ErrorIs(t, err, errs.ErrForbidden)
	assert.False(t, called)

	_, err = tr.Join(ctx, 7, 2)
	require.NoError(t, err)
	err = tr.WithMembership(7, 1, func() error { called = true; return nil })
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
	assert.False(t, called)

	err = tr.WithMembership(7, 2, func() error { called = true; return nil })
	require.NoError(t, err)
	assert.True(t, called)
}

func TestWithMembership_HoldsUserInRoom(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)
	_, err := tr.Join(ctx, 7, 1)
	require.NoError(t, err)

	moved := make(chan struct{})
	err = tr.WithMembership(7, 1, func() error {
		go func() {
			_, _ = tr.Join(ctx, 7, 2)
			close(moved)
		}()
		select {
		case <-moved:
			t.Error("join finished while the user was held in the room")
		case <-time.After(50 * time.Millisecond):
		}
		return nil
	})
	require.NoError(t, err)

	select {
	case <-moved:
	case <-time.After(time.Second):
		t.Fatal("join did not finish after release")
	}
	assert.Equal(t, int64(2), tr.Lookup(7).RoomID)
}
