package redisstore_test

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/memory"
	"github.com/cwrk-planet/watchparty/internal/redisstore"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

// id длиннее 15 цифр и больше 2^53.
const (
	bigRoomID = int64(9007199254740993)
	bigUserID = int64(123456789012345)
)

func newLog(t *testing.T) *redisstore.MessageLog {
	t.Helper()
	addr := os.Getenv("WATCHPARTY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WATCHPARTY_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := redisstore.NewClient(ctx, redisstore.Config{Addr: addr})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}

	prefix := fmt.Sprintf("test:watchparty:%s:", t.Name())
	cleanup := func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		_ = client.Close()
	})

	catalog := memory.NewCatalog(nil, []domain.Room{
		{ID: 1, Status: domain.RoomActive},
		{ID: 2, Status: domain.RoomClosed},
		{ID: bigRoomID, Status: domain.RoomActive},
	}, nil)
	return redisstore.NewMessageLog(client, catalog, prefix)
}

func TestMessageLog_AppendAndRead(t *testing.T) {
	const n = 30
	log := newLog(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := log.Append(ctx, 1, 5, "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seq, err := log.ReadSince(ctx, 1, 0, n)
	require.NoError(t, err)
	msgs := slices.Collect(seq)
	require.Len(t, msgs, n)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)
		assert.Equal(t, int64(5), m.UserID)
		assert.False(t, m.CreatedAt.IsZero())
	}

	seq, err = log.ReadSince(ctx, 1, n, 10)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))
}

func TestMessageLog_Rejects(t *testing.T) {
	log := newLog(t)
	ctx := context.Background()

	_, err := log.Append(ctx, 1, 5, " ")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = log.Append(ctx, 2, 5, "hi")
	assert.ErrorIs(t, err, domain.ErrRoomClosed)

	_, err = log.ReadSince(ctx, 99, 0, 10)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMessageLog_LongIDsRoundTrip(t *testing.T) {
	log := newLog(t)
	ctx := context.Background()

	msg, err := log.Append(ctx, bigRoomID, bigUserID, `say "hi" \ ok`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.Seq)
	assert.Equal(t, bigRoomID, msg.RoomID)
	assert.Equal(t, bigUserID, msg.UserID)

	_, err = log.Append(ctx, bigRoomID, bigUserID+1, "second")
	require.NoError(t, err)

	seq, err := log.ReadSince(ctx, bigRoomID, 0, 10)
	require.NoError(t, err)
	msgs := slices.Collect(seq)
	require.Len(t, msgs, 2)
	assert.Equal(t, bigRoomID, msgs[0].RoomID)
	assert.Equal(t, bigUserID, msgs[0].UserID)
	assert.Equal(t, `say "hi" \ ok`, msgs[0].Body)
	assert.Equal(t, msg.CreatedAt, msgs[0].CreatedAt)
	assert.Equal(t, bigUserID+1, msgs[1].UserID)
	assert.Equal(t, int64(2), msgs[1].Seq)
}
