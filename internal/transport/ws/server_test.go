package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/events"
	"github.com/cwrk-planet/watchparty/internal/memory"
	"github.com/cwrk-planet/watchparty/internal/presence"
	"github.com/cwrk-planet/watchparty/internal/service"
	"github.com/cwrk-planet/watchparty/internal/transport/ws"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func setup(t *testing.T) (*service.Gateway, *ws.Hub, string) {
	t.Helper()
	catalog := memory.NewCatalog(
		[]domain.Movie{{ID: 1, Title: "Interstellar"}},
		[]domain.Room{{ID: 1, Name: "R1", MovieID: 1, Status: domain.RoomActive}},
		[]domain.User{{ID: 1, Name: "Anna", AvatarEmoji: "🎬"}, {ID: 2, Name: "Boris"}},
	)
	bus := events.NewLocal()
	gw := service.NewGateway(catalog, memory.NewMessageLog(catalog, nil), presence.NewTracker(catalog), bus, service.GatewayConfig{PollLimit: 2})

	hub := ws.NewHub()
	r := chi.NewRouter()
	r.Get("/ws/rooms/{id}", ws.NewServer(hub, gw, time.Second).HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
		_ = bus.Close()
	})
	return gw, hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWS_BacklogThenLiveInSeqOrder(t *testing.T) {
	ctx := context.Background()
	gw, _, base := setup(t)

	_, err := gw.JoinRoom(ctx, 1, 1)
	require.NoError(t, err)
	for _, body := range []string{"one", "two", "three"} {
		_, err := gw.SendMessage(ctx, 1, 1, body)
		require.NoError(t, err)
	}

	conn := dial(t, base+"/ws/rooms/1?user_id=1&after=1")

	state := readFrame(t, conn)
	require.Equal(t, ws.TypeState, state.Type)
	var sp ws.StatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &sp))
	assert.Equal(t, 1, sp.ViewerCount)

	var seqs []int64
	for len(seqs) < 2 {
		f := readFrame(t, conn)
		require.Equal(t, ws.TypeChat, f.Type)
		var cp ws.ChatPayload
		require.NoError(t, json.Unmarshal(f.Payload, &cp))
		seqs = append(seqs, cp.Seq)
	}
	assert.Equal(t, []int64{2, 3}, seqs, "backlog starts after the cursor and pages past the poll limit")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "chat",
		"payload": map[string]string{"body": "four", "client_id": "c-1"},
	}))

	var gotAck, gotChat bool
	for !gotAck || !gotChat {
		f := readFrame(t, conn)
		switch f.Type {
		case ws.TypeChatAck:
			var ack ws.ChatAckPayload
			require.NoError(t, json.Unmarshal(f.Payload, &ack))
			assert.Equal(t, int64(4), ack.Seq)
			assert.Equal(t, "c-1", ack.ClientID)
			gotAck = true
		case ws.TypeChat:
			var cp ws.ChatPayload
			require.NoError(t, json.Unmarshal(f.Payload, &cp))
			assert.Equal(t, int64(4), cp.Seq)
			assert.Equal(t, "four", cp.Body)
			assert.Equal(t, "Anna", cp.UserName)
			assert.Equal(t, "🎬", cp.AvatarEmoji)
			gotChat = true
		}
	}
}

func TestWS_RejectsChatFromNonMember(t *testing.T) {
	_, _, base := setup(t)
	conn := dial(t, base+"/ws/rooms/1?user_id=2")

	require.Equal(t, ws.TypeState, readFrame(t, conn).Type)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "chat",
		"payload": map[string]string{"body": "hi", "client_id": "x"},
	}))

	f := readFrame(t, conn)
	require.Equal(t, ws.TypeError, f.Type)
	var ep ws.ErrorPayload
	require.NoError(t, json.Unmarshal(f.Payload, &ep))
	assert.Equal(t, "forbidden", ep.Kind)
	assert.Equal(t, "x", ep.ClientID)
}

func TestWS_DisconnectKeepsPresence(t *testing.T) {
	ctx := context.Background()
	gw, hub, base := setup(t)
	_, err := gw.JoinRoom(ctx, 1, 1)
	require.NoError(t, err)

	conn := dial(t, base+"/ws/rooms/1?user_id=1")
	require.Equal(t, ws.TypeState, readFrame(t, conn).Type)
	require.Eventually(t, func() bool { return hub.Count(1) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count(1) == 0 }, 2*time.Second, 10*time.Millisecond)

	view, err := gw.GetRoom(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ViewerCount)
}

func TestWS_HandshakeErrors(t *testing.T) {
	_, _, base := setup(t)

	cases := map[string]int{
		"/ws/rooms/1":                    http.StatusUnauthorized,
		"/ws/rooms/9?user_id=1":          http.StatusNotFound,
		"/ws/rooms/1?user_id=99":         http.StatusNotFound,
		"/ws/rooms/1?user_id=1&after=-3": http.StatusBadRequest,
	}
	for path, want := range cases {
		_, resp, err := websocket.DefaultDialer.Dial(base+path, nil)
		require.Error(t, err, path)
		require.NotNil(t, resp, path)
		assert.Equal(t, want, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}
