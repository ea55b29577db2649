package domain

import (
	"errors"
	"fmt"

	"github.com/cwrk-planet/watchparty/pkg/errs"
)

var (
	ErrRoomNotFound   = fmt.Errorf("room not found: %w", errs.ErrNotFound)
	ErrUserNotFound   = fmt.Errorf("user not found: %w", errs.ErrNotFound)
	ErrMovieNotFound  = fmt.Errorf("movie not found: %w", errs.ErrNotFound)
	ErrEmptyMessage   = fmt.Errorf("empty message: %w", errs.ErrInvalidInput)
	ErrMessageTooLong = fmt.Errorf("message too long: %w", errs.ErrInvalidInput)
	ErrInvalidCursor  = fmt.Errorf("invalid cursor: %w", errs.ErrInvalidInput)
	ErrNotInRoom      = fmt.Errorf("user not in the room: %w", errs.ErrForbidden)

	// ErrRoomClosed не несёт вида: для join это NotFound, для append — InvalidInput.
	ErrRoomClosed = errors.New("room is closed")
)
