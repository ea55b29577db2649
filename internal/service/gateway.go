package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/events"
	"github.com/cwrk-planet/watchparty/internal/presence"
	"github.com/cwrk-planet/watchparty/pkg/errs"
	"github.com/cwrk-planet/watchparty/pkg/logger"
)

const (
	DefaultPollLimit        = 50
	DefaultMaxMessageLength = 4000
	DefaultSweepInterval    = 5 * time.Second
)

type GatewayConfig struct {
	PollLimit        int
	MaxMessageLength int
	SweepInterval    time.Duration
}

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.PollLimit <= 0 {
		c.PollLimit = DefaultPollLimit
	}
	if c.MaxMessageLength <= 0 {
		c.MaxMessageLength = DefaultMaxMessageLength
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// Gateway — внешний контракт ядра: членство, отправка и чтение сообщений, списки.
type Gateway struct {
	catalog Catalog
	store   MessageStore
	tracker *presence.Tracker
	rooms   *RoomService
	bus     events.Bus
	cfg     GatewayConfig
}

func NewGateway(catalog Catalog, store MessageStore, tracker *presence.Tracker, bus events.Bus, cfg GatewayConfig) *Gateway {
	return &Gateway{
		catalog: catalog,
		store:   store,
		tracker: tracker,
		rooms:   NewRoomService(catalog, tracker),
		bus:     bus,
		cfg:     cfg.withDefaults(),
	}
}

func (g *Gateway) Rooms() *RoomService { return g.rooms }

// JoinRoom переводит пользователя в комнату и возвращает её с уже обновлённым числом зрителей.
func (g *Gateway) JoinRoom(ctx context.Context, userID, roomID int64) (domain.RoomView, error) {
	if _, err := g.catalog.User(ctx, userID); err != nil {
		return domain.RoomView{}, err
	}

	prev, err := g.tracker.Join(ctx, userID, roomID)
	if err != nil {
		return domain.RoomView{}, fmt.Errorf("join room %d: %w", roomID, err)
	}
	g.tracker.Heartbeat(userID)

	if prev != roomID {
		if prev != 0 {
			g.publish(ctx, events.New(domain.EventUserLeft, prev, userID, 0))
		}
		g.publish(ctx, events.New(domain.EventUserJoined, roomID, userID, 0))
		logger.FromContext(ctx).Info("user joined room", "user_id", userID, "room_id", roomID, "prev_room_id", prev)
	}

	return g.rooms.Get(ctx, roomID)
}

// LeaveRoom идемпотентен и ведёт себя так же, как выход по таймауту.
func (g *Gateway) LeaveRoom(ctx context.Context, userID int64) error {
	prev, left := g.tracker.Disconnect(userID)
	if left {
		g.publish(ctx, events.New(domain.EventUserLeft, prev, userID, 0))
		logger.FromContext(ctx).Info("user left room", "user_id", userID, "room_id", prev)
	}
	return nil
}

func (g *Gateway) Heartbeat(ctx context.Context, userID int64) error {
	if _, err := g.catalog.User(ctx, userID); err != nil {
		return err
	}
	g.tracker.Heartbeat(userID)
	return nil
}

// SendMessage: комната должна существовать, пользователь должен в ней находиться.
// При любой ошибке в лог ничего не пишется.
func (g *Gateway) SendMessage(ctx context.Context, userID, roomID int64, body string) (domain.MessageView, error) {
	if _, err := g.catalog.Room(ctx, roomID); err != nil {
		return domain.MessageView{}, err
	}
	if g.tracker.Lookup(userID).RoomID != roomID {
		return domain.MessageView{}, fmt.Errorf("user %d, room %d: %w", userID, roomID, domain.ErrNotInRoom)
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return domain.MessageView{}, domain.ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(body); n > g.cfg.MaxMessageLength {
		return domain.MessageView{}, fmt.Errorf("%d runes, max %d: %w", n, g.cfg.MaxMessageLength, domain.ErrMessageTooLong)
	}
	author, err := g.catalog.User(ctx, userID)
	if err != nil {
		return domain.MessageView{}, err
	}

	// переход в другую комнату дождётся конца Append
	var msg domain.Message
	err = g.tracker.WithMembership(userID, roomID, func() error {
		var err error
		msg, err = g.store.Append(ctx, roomID, userID, body)
		return err
	})
	if err != nil {
		return domain.MessageView{}, fmt.Errorf("append to room %d: %w", roomID, err)
	}
	g.tracker.Heartbeat(userID)
	g.publish(ctx, events.New(domain.EventMessageAppended, roomID, userID, msg.Seq))

	return domain.MessageView{Message: msg, UserName: author.Name, AvatarEmoji: author.AvatarEmoji}, nil
}

// PollMessages возвращает сообщения после курсора с именами авторов и следующий курсор.
// Если нового нет, курсор не меняется.
func (g *Gateway) PollMessages(ctx context.Context, roomID, after int64) ([]domain.MessageView, int64, error) {
	if after < 0 {
		return nil, after, domain.ErrInvalidCursor
	}
	seq, err := g.store.ReadSince(ctx, roomID, after, g.cfg.PollLimit)
	if err != nil {
		return nil, after, err
	}

	msgs := slices.Collect(seq)
	next := after
	if len(msgs) > 0 {
		next = msgs[len(msgs)-1].Seq
	}
	views, err := g.withAuthors(ctx, msgs)
	if err != nil {
		return nil, after, err
	}
	return views, next, nil
}

// withAuthors подтягивает автора каждого сообщения, один запрос в каталог на автора.
func (g *Gateway) withAuthors(ctx context.Context, msgs []domain.Message) ([]domain.MessageView, error) {
	authors := make(map[int64]domain.User)
	out := make([]domain.MessageView, 0, len(msgs))
	for _, m := range msgs {
		u, ok := authors[m.UserID]
		if !ok {
			found, err := g.catalog.User(ctx, m.UserID)
			switch {
			case err == nil:
				u = found
			case !errors.Is(err, errs.ErrNotFound):
				return nil, fmt.Errorf("catalog.User %d: %w", m.UserID, err)
			}
			authors[m.UserID] = u
		}
		out = append(out, domain.MessageView{
			Message:     m,
			UserName:    u.Name,
			AvatarEmoji: u.AvatarEmoji,
		})
	}
	return out, nil
}

func (g *Gateway) ListRooms(ctx context.Context) ([]domain.RoomView, error) {
	return g.rooms.ListActive(ctx)
}

func (g *Gateway) GetRoom(ctx context.Context, roomID int64) (domain.RoomView, error) {
	return g.rooms.Get(ctx, roomID)
}

func (g *Gateway) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	return g.rooms.ListMovies(ctx)
}

// ListFriends отдаёт всех пользователей со статусом; сначала online, дальше по имени.
func (g *Gateway) ListFriends(ctx context.Context) ([]domain.UserView, error) {
	users, err := g.catalog.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Users: %w", err)
	}
	titles, err := g.rooms.WatchingTitles(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		p := g.tracker.Lookup(u.ID)
		view := domain.UserView{
			User:          u,
			Status:        p.Status,
			CurrentRoomID: p.RoomID,
		}
		if p.InRoom() {
			view.WatchingTitle = titles[p.RoomID]
		}
		out = append(out, view)
	}

	slices.SortStableFunc(out, func(a, b domain.UserView) int {
		ao, bo := a.Status == domain.UserOnline, b.Status == domain.UserOnline
		if ao != bo {
			if ao {
				return -1
			}
			return 1
		}
		if n := strings.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Subscribe подписывает на события комнаты. Событие служит только сигналом перечитать по курсору.
func (g *Gateway) Subscribe(roomID int64, fn events.Handler) (func(), error) {
	return g.bus.Subscribe(roomID, fn)
}

// RunSweeper снимает молчащих пользователей и рассылает user_left.
func (g *Gateway) RunSweeper(ctx context.Context) error {
	slog.Info("presence sweeper started", "interval", g.cfg.SweepInterval)
	return g.tracker.Run(ctx, g.cfg.SweepInterval, func(expired []presence.Expiry) {
		for _, e := range expired {
			if e.RoomID == 0 {
				continue
			}
			g.publish(ctx, events.New(domain.EventUserLeft, e.RoomID, e.UserID, 0))
		}
		slog.Info("presence expired", "users", len(expired))
	})
}

func (g *Gateway) publish(ctx context.Context, ev domain.Event) {
	if err := g.bus.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn("publish event",
			"type", ev.Type,
			"room_id", ev.RoomID,
			"err", err,
		)
	}
}
