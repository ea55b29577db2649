package domain

import "time"

type RoomStatus string

const (
	RoomActive RoomStatus = "active"
	RoomClosed RoomStatus = "closed"
)

type Room struct {
	ID          int64      `db:"id"`
	Name        string     `db:"name"`
	MovieID     int64      `db:"movie_id"`
	PosterEmoji string     `db:"poster_emoji"`
	Status      RoomStatus `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (r Room) Active() bool { return r.Status == RoomActive }

// RoomView — комната для клиента; ViewerCount всегда вычисляется из presence.
type RoomView struct {
	Room
	MovieTitle  string
	ViewerCount int
}
