package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/events"
	"github.com/cwrk-planet/watchparty/pkg/errs"
	"github.com/cwrk-planet/watchparty/pkg/httputil"
	"github.com/cwrk-planet/watchparty/pkg/logger"
)

type Gateway interface {
	GetRoom(ctx context.Context, roomID int64) (domain.RoomView, error)
	Heartbeat(ctx context.Context, userID int64) error
	SendMessage(ctx context.Context, userID, roomID int64, body string) (domain.MessageView, error)
	PollMessages(ctx context.Context, roomID, after int64) ([]domain.MessageView, int64, error)
	Subscribe(roomID int64, fn events.Handler) (func(), error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	gw       Gateway

	pingEvery time.Duration
}

func NewServer(hub *Hub, gw Gateway, pingEvery time.Duration) *Server {
	if pingEvery <= 0 {
		pingEvery = 15 * time.Second
	}
	return &Server{
		hub: hub,
		gw:  gw,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: pingEvery,
	}
}

// WS endpoint: GET /ws/rooms/{id}?user_id=...&after=...
// Сообщения доставляются по тому же курсору, что и в PollMessages: событие шины лишь будит перечитывание.
// Разрыв соединения не выводит из комнаты, это делает свип по таймауту.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	uid, err := strconv.ParseInt(strings.TrimSpace(q.Get("user_id")), 10, 64)
	if err != nil || uid <= 0 {
		httputil.Error(ctx, w, http.StatusUnauthorized, "invalid user_id", nil)
		return
	}
	roomID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || roomID <= 0 {
		httputil.ErrorFrom(ctx, w, fmt.Errorf("room id: %w", errs.ErrInvalidInput))
		return
	}
	var after int64
	if raw := q.Get("after"); raw != "" {
		if after, err = strconv.ParseInt(raw, 10, 64); err != nil || after < 0 {
			httputil.ErrorFrom(ctx, w, domain.ErrInvalidCursor)
			return
		}
	}
	if _, err := s.gw.GetRoom(ctx, roomID); err != nil {
		httputil.ErrorFrom(ctx, w, err)
		return
	}
	if err := s.gw.Heartbeat(ctx, uid); err != nil {
		httputil.ErrorFrom(ctx, w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		logger.FromContext(ctx).Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, roomID, uid)
	s.hub.Add(c)
	log := logger.FromContext(ctx).With("room_id", roomID, "user_id", uid)
	log.Info("ws connected", "after", after, "room_conns", s.hub.Count(roomID))

	unsubscribe, err := s.gw.Subscribe(roomID, c.notify)
	if err != nil {
		log.Warn("ws subscribe failed", "err", err)
		s.hub.Remove(c)
		_ = c.Close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pushLoop(ctx, c, after)
	}()
	s.readLoop(ctx, c)

	unsubscribe()
	s.hub.Remove(c)
	_ = c.Close()
	wg.Wait()

	log.Info("ws disconnected")
}

// pushLoop единственный владелец курсора соединения.
func (s *Server) pushLoop(ctx context.Context, c *wsConn, cursor int64) {
	log := logger.FromContext(ctx).With("room_id", c.roomID, "user_id", c.userID)

	flush := func() bool {
		for {
			msgs, next, err := s.gw.PollMessages(ctx, c.roomID, cursor)
			if err != nil {
				log.Warn("ws poll failed", "cursor", cursor, "err", err)
				return true
			}
			if len(msgs) == 0 {
				return true
			}
			for _, m := range msgs {
				if err := c.Send(Message{Type: TypeChat, Payload: toChatPayload(m)}); err != nil {
					return false
				}
			}
			cursor = next
		}
	}
	sendState := func(ev *domain.Event) bool {
		room, err := s.gw.GetRoom(ctx, c.roomID)
		if err != nil {
			log.Warn("ws room state failed", "err", err)
			return true
		}
		p := StatePayload{RoomID: c.roomID, ViewerCount: room.ViewerCount}
		if ev != nil {
			p.Event = string(ev.Type)
			p.UserID = ev.UserID
		}
		return c.Send(Message{Type: TypeState, Payload: p}) == nil
	}

	if !sendState(nil) || !flush() {
		_ = c.Close()
		return
	}

	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.wakeChat:
			if !flush() {
				_ = c.Close()
				return
			}
		case ev := <-c.wakeState:
			if !sendState(&ev) {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				_ = c.Close()
				return
			}
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()
	log := logger.FromContext(ctx).With("room_id", c.roomID, "user_id", c.userID)

	c.conn.SetReadLimit(64 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		_ = s.gw.Heartbeat(ctx, c.userID)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("ws read failed", "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			_ = c.Send(errorFrame(fmt.Errorf("malformed frame: %w", errs.ErrInvalidInput), ""))
			continue
		}

		switch in.Type {
		case TypeChat:
			var req ChatRequest
			if err := json.Unmarshal(in.Payload, &req); err != nil {
				_ = c.Send(errorFrame(fmt.Errorf("malformed chat payload: %w", errs.ErrInvalidInput), ""))
				continue
			}
			// Само сообщение придёт всем (и отправителю) через pushLoop в порядке seq.
			msg, err := s.gw.SendMessage(ctx, c.userID, c.roomID, req.Body)
			if err != nil {
				_ = c.Send(errorFrame(err, req.ClientID))
				continue
			}
			_ = c.Send(Message{Type: TypeChatAck, Payload: ChatAckPayload{Seq: msg.Seq, ClientID: req.ClientID}})
		default:
			// ignore
		}
	}
}

// --- helpers ---

func toChatPayload(m domain.MessageView) ChatPayload {
	return ChatPayload{
		Seq:         m.Seq,
		RoomID:      m.RoomID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		AvatarEmoji: m.AvatarEmoji,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}

func errorFrame(err error, clientID string) Message {
	msg := err.Error()
	if errs.Kind(err) == "internal" {
		msg = "internal error"
	}
	return Message{Type: TypeError, Payload: ErrorPayload{Message: msg, Kind: errs.Kind(err), ClientID: clientID}}
}

type wsConn struct {
	conn   *websocket.Conn
	roomID int64
	userID int64

	sendMu    chan struct{}
	closeOnce sync.Once
	closed    chan struct{}

	wakeChat  chan struct{}
	wakeState chan domain.Event
}

func newWsConn(c *websocket.Conn, roomID, userID int64) *wsConn {
	return &wsConn{
		conn:      c,
		roomID:    roomID,
		userID:    userID,
		sendMu:    make(chan struct{}, 1),
		closed:    make(chan struct{}),
		wakeChat:  make(chan struct{}, 1),
		wakeState: make(chan domain.Event, 8),
	}
}

// notify вызывается шиной и не блокируется: пропуск допустим, курсор догонит.
func (c *wsConn) notify(ev domain.Event) {
	if ev.Type == domain.EventMessageAppended {
		select {
		case c.wakeChat <- struct{}{}:
		default:
		}
		return
	}
	select {
	case c.wakeState <- ev:
	default:
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
