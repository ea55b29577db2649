package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

type MessageLog struct {
	db *pgxpool.Pool
}

func NewMessageLog(db *pgxpool.Pool) *MessageLog {
	return &MessageLog{db: db}
}

// Append защищён от гонок блокировкой строки комнаты.
// Параллельные транзакции по той же комнате ждут, счётчик last_seq растёт без дыр.
func (r *MessageLog) Append(ctx context.Context, roomID, userID int64, body string) (domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Message{}, unavailable("begin", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status string
	if err := tx.QueryRow(ctx, queryLockRoom, roomID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, fmt.Errorf("%w: room %d does not exist", errs.ErrInvalidInput, roomID)
		}
		return domain.Message{}, unavailable("lock room", err)
	}
	if domain.RoomStatus(status) != domain.RoomActive {
		return domain.Message{}, fmt.Errorf("%w: room %d: %w", errs.ErrInvalidInput, roomID, domain.ErrRoomClosed)
	}

	msg := domain.Message{RoomID: roomID, UserID: userID, Body: body}
	if err := tx.QueryRow(ctx, queryNextSeq, roomID).Scan(&msg.Seq); err != nil {
		return domain.Message{}, unavailable("next seq", err)
	}
	if err := tx.QueryRow(ctx, queryInsertMessage, roomID, msg.Seq, userID, body).Scan(&msg.CreatedAt); err != nil {
		return domain.Message{}, unavailable("insert message", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Message{}, unavailable("commit", err)
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	return msg, nil
}

// ReadSince читает страницу целиком, дальше последовательность идёт по загруженному срезу.
func (r *MessageLog) ReadSince(ctx context.Context, roomID, after int64, limit int) (iter.Seq[domain.Message], error) {
	if after < 0 {
		return nil, domain.ErrInvalidCursor
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive: %w", errs.ErrInvalidInput)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, queryRoomExists, roomID).Scan(&exists); err != nil {
		return nil, unavailable("room exists", err)
	}
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	rows, err := r.db.Query(ctx, queryReadSince, roomID, after, limit)
	if err != nil {
		return nil, unavailable("read since", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.Seq, &m.RoomID, &m.UserID, &m.Body, &m.CreatedAt); err != nil {
			return nil, unavailable("scan message", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read since", err)
	}

	return slices.Values(out), nil
}
