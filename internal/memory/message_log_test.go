package memory_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/memory"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

func newTestLog(t *testing.T) *memory.MessageLog {
	t.Helper()
	catalog := memory.NewCatalog(
		[]domain.Movie{{ID: 1, Title: "Interstellar"}},
		[]domain.Room{
			{ID: 1, Name: "open", MovieID: 1, Status: domain.RoomActive},
			{ID: 2, Name: "other", MovieID: 1, Status: domain.RoomActive},
			{ID: 3, Name: "closed", MovieID: 1, Status: domain.RoomClosed},
		},
		[]domain.User{{ID: 10, Name: "alice"}},
	)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return memory.NewMessageLog(catalog, func() time.Time { return fixed })
}

func collect(t *testing.T, log *memory.MessageLog, roomID, after int64, limit int) []domain.Message {
	t.Helper()
	seq, err := log.ReadSince(context.Background(), roomID, after, limit)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func TestAppend_AssignsContiguousSeqPerRoom(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	for i := 1; i <= 3; i++ {
		m, err := log.Append(ctx, 1, 10, "  hello ")
		require.NoError(t, err)
		assert.Equal(t, int64(i), m.Seq)
		assert.Equal(t, "hello", m.Body)
		assert.Equal(t, int64(1), m.RoomID)
	}

	m, err := log.Append(ctx, 2, 10, "first in room 2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Seq, "sequence is per room")
}

func TestAppend_Rejects(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	_, err := log.Append(ctx, 1, 10, "   \n\t")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = log.Append(ctx, 3, 10, "hi")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrRoomClosed)

	_, err = log.Append(ctx, 99, 10, "hi")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.NotErrorIs(t, err, errs.ErrNotFound)

	assert.Empty(t, collect(t, log, 1, 0, 10), "failed appends must not be stored")
}

func TestAppend_ConcurrentSendersGetContiguousSeqs(t *testing.T) {
	const n = 200
	ctx := context.Background()
	log := newTestLog(t)

	var wg sync.WaitGroup
	seqs := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := log.Append(ctx, 1, 10, "msg")
			assert.NoError(t, err)
			seqs <- m.Seq
		}()
	}
	wg.Wait()
	close(seqs)

	got := make([]int64, 0, n)
	for s := range seqs {
		got = append(got, s)
	}
	slices.Sort(got)
	for i, s := range got {
		require.Equal(t, int64(i+1), s)
	}

	msgs := collect(t, log, 1, 0, n+10)
	require.Len(t, msgs, n)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)
	}
}

func TestReadSince(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	for range 5 {
		_, err := log.Append(ctx, 1, 10, "x")
		require.NoError(t, err)
	}

	t.Run("after cursor and limit", func(t *testing.T) {
		msgs := collect(t, log, 1, 2, 2)
		require.Len(t, msgs, 2)
		assert.Equal(t, int64(3), msgs[0].Seq)
		assert.Equal(t, int64(4), msgs[1].Seq)
	})

	t.Run("nothing new is empty, not an error", func(t *testing.T) {
		assert.Empty(t, collect(t, log, 1, 5, 10))
		assert.Empty(t, collect(t, log, 2, 0, 10))
	})

	t.Run("unknown room", func(t *testing.T) {
		_, err := log.ReadSince(ctx, 99, 0, 10)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("negative cursor", func(t *testing.T) {
		_, err := log.ReadSince(ctx, 1, -1, 10)
		assert.ErrorIs(t, err, domain.ErrInvalidCursor)
	})

	t.Run("sequence is restartable and stable", func(t *testing.T) {
		seq, err := log.ReadSince(ctx, 1, 0, 10)
		require.NoError(t, err)

		first := slices.Collect(seq)
		_, err = log.Append(ctx, 1, 10, "late")
		require.NoError(t, err)
		second := slices.Collect(seq)

		assert.Equal(t, first, second)
		assert.Len(t, first, 5)
	})

	t.Run("early break", func(t *testing.T) {
		seq, err := log.ReadSince(ctx, 1, 0, 10)
		require.NoError(t, err)
		var seen int
		for range seq {
			seen++
			if seen == 2 {
				break
			}
		}
		assert.Equal(t, 2, seen)
	})
}
