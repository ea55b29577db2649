package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/events"
	"github.com/cwrk-planet/watchparty/internal/memory"
	"github.com/cwrk-planet/watchparty/internal/presence"
	"github.com/cwrk-planet/watchparty/internal/service"
)

func TestGateway_RunSweeperPublishesUserLeft(t *testing.T) {
	catalog := memory.NewCatalog(
		[]domain.Movie{{ID: 1, Title: "Dune"}},
		[]domain.Room{{ID: 1, Name: "R1", MovieID: 1, Status: domain.RoomActive}},
		[]domain.User{{ID: 7, Name: "Dana"}},
	)
	tr := presence.NewTracker(catalog, presence.WithTimeout(10*time.Millisecond))
	bus := events.NewLocal()
	defer bus.Close()
	gw := service.NewGateway(catalog, memory.NewMessageLog(catalog, nil), tr, bus, service.GatewayConfig{
		SweepInterval: 5 * time.Millisecond,
	})

	left := make(chan domain.Event, 1)
	_, err := gw.Subscribe(1, func(ev domain.Event) {
		if ev.Type == domain.EventUserLeft {
			select {
			case left <- ev:
			default:
			}
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = gw.JoinRoom(ctx, 7, 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- gw.RunSweeper(ctx) }()

	select {
	case ev := <-left:
		assert.Equal(t, int64(7), ev.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("user_left not published")
	}

	view, err := gw.GetRoom(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, view.ViewerCount)

	cancel()
	require.NoError(t, <-done)
}
