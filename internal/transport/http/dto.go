package http

import (
	"time"

	"github.com/cwrk-planet/watchparty/internal/domain"
)

type RoomItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	MovieID     int64     `json:"movieId"`
	MovieTitle  string    `json:"movieTitle"`
	PosterEmoji string    `json:"posterEmoji"`
	Status      string    `json:"status"`
	ViewerCount int       `json:"viewerCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type MovieItem struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Genre       string  `json:"genre"`
	DurationMin int     `json:"durationMin"`
	Rating      float64 `json:"rating"`
	PosterEmoji string  `json:"posterEmoji"`
}

type FriendItem struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	AvatarEmoji   string `json:"avatarEmoji"`
	Status        string `json:"status"`
	CurrentRoomID *int64 `json:"currentRoomId"`
	WatchingTitle string `json:"watchingTitle,omitempty"`
}

type MessageItem struct {
	Seq       int64     `json:"seq"`
	RoomID    int64     `json:"roomId"`
	UserID      int64     `json:"userId"`
	UserName    string    `json:"userName"`
	AvatarEmoji string    `json:"avatarEmoji"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PollResponse struct {
	Items      []MessageItem `json:"items"`
	NextCursor int64         `json:"nextCursor"`
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

func toRoomItem(v domain.RoomView) RoomItem {
	return RoomItem{
		ID:          v.ID,
		Name:        v.Name,
		MovieID:     v.MovieID,
		MovieTitle:  v.MovieTitle,
		PosterEmoji: v.PosterEmoji,
		Status:      string(v.Status),
		ViewerCount: v.ViewerCount,
		CreatedAt:   v.CreatedAt,
	}
}

func toMovieItem(m domain.Movie) MovieItem {
	return MovieItem{
		ID:          m.ID,
		Title:       m.Title,
		Genre:       m.Genre,
		DurationMin: m.DurationMin,
		Rating:      m.Rating,
		PosterEmoji: m.PosterEmoji,
	}
}

func toFriendItem(u domain.UserView) FriendItem {
	it := FriendItem{
		ID:            u.ID,
		Name:          u.Name,
		AvatarEmoji:   u.AvatarEmoji,
		Status:        string(u.Status),
		WatchingTitle: u.WatchingTitle,
	}
	if u.CurrentRoomID != 0 {
		id := u.CurrentRoomID
		it.CurrentRoomID = &id
	}
	return it
}

func ToMessageItem(m domain.MessageView) MessageItem {
	return MessageItem{
		Seq:         m.Seq,
		RoomID:      m.RoomID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		AvatarEmoji: m.AvatarEmoji,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
