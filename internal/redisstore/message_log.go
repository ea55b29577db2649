package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

type RoomSource interface {
	Room(ctx context.Context, id int64) (domain.Room, error)
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewClient подключается к Redis и проверяет соединение.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w: %w", cfg.Addr, errs.ErrUnavailable, err)
	}
	return client, nil
}

// appendScript выдаёт следующий seq и кладёт сообщение в sorted set одной атомарной операцией.
// Поля сообщения кодирует Go: ARGV[1] это JSON-объект без открывающей скобки. Скрипт
// дописывает только seq и время, id через числа Lua (double) не проходят.
var appendScript = redis.NewScript(`
	local seq = redis.call('INCR', KEYS[1])
	local t = redis.call('TIME')
	local ms = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
	local msg = string.format('{"seq":%d,"created_at_ms":%d,', seq, ms) .. ARGV[1]
	redis.call('ZADD', KEYS[2], seq, msg)
	return {seq, ms}
`)

// MessageLog хранит лог в Redis: счётчик <prefix>room:<id>:seq и sorted set <prefix>room:<id>:log.
type MessageLog struct {
	client *redis.Client
	rooms  RoomSource
	prefix string
}

func NewMessageLog(client *redis.Client, rooms RoomSource, prefix string) *MessageLog {
	return &MessageLog{client: client, rooms: rooms, prefix: prefix}
}

// messageFields кодирует Go; seq и created_at_ms добавляет скрипт.
type messageFields struct {
	RoomID int64  `json:"room_id"`
	UserID int64  `json:"user_id"`
	Body   string `json:"body"`
}

type record struct {
	Seq         int64  `json:"seq"`
	RoomID      int64  `json:"room_id"`
	UserID      int64  `json:"user_id"`
	Body        string `json:"body"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

func (r record) message() domain.Message {
	return domain.Message{
		Seq:       r.Seq,
		RoomID:    r.RoomID,
		UserID:    r.UserID,
		Body:      r.Body,
		CreatedAt: time.UnixMilli(r.CreatedAtMs).UTC(),
	}
}

func (l *MessageLog) Append(ctx context.Context, roomID, userID int64, body string) (domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}

	room, err := l.rooms.Room(ctx, roomID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return domain.Message{}, fmt.Errorf("%w: room %d does not exist", errs.ErrInvalidInput, roomID)
		}
		return domain.Message{}, err
	}
	if !room.Active() {
		return domain.Message{}, fmt.Errorf("%w: room %d: %w", errs.ErrInvalidInput, roomID, domain.ErrRoomClosed)
	}

	fields, err := json.Marshal(messageFields{RoomID: roomID, UserID: userID, Body: body})
	if err != nil {
		return domain.Message{}, fmt.Errorf("encode message: %w", err)
	}

	res, err := appendScript.Run(ctx, l.client,
		[]string{l.seqKey(roomID), l.logKey(roomID)},
		string(fields[1:]),
	).Int64Slice()
	if err != nil {
		return domain.Message{}, fmt.Errorf("redis append: %w: %w", errs.ErrUnavailable, err)
	}
	if len(res) != 2 {
		return domain.Message{}, fmt.Errorf("redis append: unexpected reply %v: %w", res, errs.ErrUnavailable)
	}

	return domain.Message{
		Seq:       res[0],
		RoomID:    roomID,
		UserID:    userID,
		Body:      body,
		CreatedAt: time.UnixMilli(res[1]).UTC(),
	}, nil
}

func (l *MessageLog) ReadSince(ctx context.Context, roomID, after int64, limit int) (iter.Seq[domain.Message], error) {
	if after < 0 {
		return nil, domain.ErrInvalidCursor
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive: %w", errs.ErrInvalidInput)
	}
	if _, err := l.rooms.Room(ctx, roomID); err != nil {
		return nil, err
	}

	raw, err := l.client.ZRangeByScore(ctx, l.logKey(roomID), &redis.ZRangeBy{
		Min:   "(" + strconv.FormatInt(after, 10),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read since: %w: %w", errs.ErrUnavailable, err)
	}

	out := make([]domain.Message, 0, len(raw))
	for _, s := range raw {
		var rec record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode message in room %d: %w", roomID, err)
		}
		out = append(out, rec.message())
	}
	return slices.Values(out), nil
}

func (l *MessageLog) seqKey(roomID int64) string {
	return fmt.Sprintf("%sroom:%d:seq", l.prefix, roomID)
}

func (l *MessageLog) logKey(roomID int64) string {
	return fmt.Sprintf("%sroom:%d:log", l.prefix, roomID)
}
