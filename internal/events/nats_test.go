package events_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/events"
)

func newNATS(t *testing.T) *events.NATS {
	t.Helper()
	url := os.Getenv("WATCHPARTY_TEST_NATS_URL")
	if url == "" {
		t.Skip("WATCHPARTY_TEST_NATS_URL not set")
	}
	bus, err := events.NewNATS(events.NATSConfig{URL: url, SubjectPrefix: "test." + t.Name()})
	if err != nil {
		t.Skipf("nats not available: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestNATS_PublishSubscribe(t *testing.T) {
	bus := newNATS(t)
	assert.Equal(t, "test.TestNATS_PublishSubscribe.rooms.7.events", bus.Subject(7))

	got := make(chan domain.Event, 1)
	unsub, err := bus.Subscribe(7, func(ev domain.Event) { got <- ev })
	require.NoError(t, err)
	defer unsub()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Flush(ctx))

	sent := events.New(domain.EventMessageAppended, 7, 3, 12)
	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case ev := <-got:
		assert.Equal(t, sent.ID, ev.ID)
		assert.Equal(t, int64(12), ev.Seq)
		assert.Equal(t, domain.EventMessageAppended, ev.Type)
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}
