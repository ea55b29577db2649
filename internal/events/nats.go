package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
}

// NATS — шина поверх core NATS, по субъекту на комнату: <prefix>.rooms.<id>.events.
type NATS struct {
	nc     *nats.Conn
	prefix string
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	name := cfg.Name
	if name == "" {
		name = "watchparty"
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w: %w", cfg.URL, errs.ErrUnavailable, err)
	}
	return NewNATSFromConn(nc, cfg.SubjectPrefix), nil
}

func NewNATSFromConn(nc *nats.Conn, prefix string) *NATS {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = "watchparty"
	}
	return &NATS{nc: nc, prefix: prefix}
}

func (b *NATS) Subject(roomID int64) string {
	return fmt.Sprintf("%s.rooms.%d.events", b.prefix, roomID)
}

func (b *NATS) Publish(_ context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.nc.Publish(b.Subject(ev.RoomID), data); err != nil {
		return fmt.Errorf("nats publish: %w: %w", errs.ErrUnavailable, err)
	}
	return nil
}

func (b *NATS) Subscribe(roomID int64, fn Handler) (func(), error) {
	sub, err := b.nc.Subscribe(b.Subject(roomID), func(m *nats.Msg) {
		var ev domain.Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			slog.Warn("skip malformed event", "subject", m.Subject, "err", err)
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w: %w", errs.ErrUnavailable, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && b.nc.IsConnected() {
			slog.Debug("nats unsubscribe", "room_id", roomID, "err", err)
		}
	}, nil
}

// Flush дожидается, пока сервер обработает отправленное.
func (b *NATS) Flush(ctx context.Context) error {
	return b.nc.FlushWithContext(ctx)
}

func (b *NATS) Close() error {
	return b.nc.Drain()
}
