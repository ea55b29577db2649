package grpcx

import (
	"time"

	"github.com/cwrk-planet/watchparty/internal/domain"
)

type Empty struct{}

type RoomRequest struct {
	RoomID int64 `json:"room_id"`
}

type SendMessageRequest struct {
	RoomID int64  `json:"room_id"`
	Body   string `json:"body"`
}

type PollMessagesRequest struct {
	RoomID int64 `json:"room_id"`
	After  int64 `json:"after"`
}

type Room struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	MovieID     int64     `json:"movie_id"`
	MovieTitle  string    `json:"movie_title"`
	PosterEmoji string    `json:"poster_emoji"`
	Status      string    `json:"status"`
	ViewerCount int32     `json:"viewer_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListRoomsReply struct {
	Rooms []Room `json:"rooms"`
}

type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Genre       string  `json:"genre"`
	DurationMin int32   `json:"duration_min"`
	Rating      float64 `json:"rating"`
	PosterEmoji string  `json:"poster_emoji"`
}

type ListMoviesReply struct {
	Movies []Movie `json:"movies"`
}

type Friend struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	AvatarEmoji   string `json:"avatar_emoji"`
	Status        string `json:"status"`
	CurrentRoomID int64  `json:"current_room_id,omitempty"`
	WatchingTitle string `json:"watching_title,omitempty"`
}

type ListFriendsReply struct {
	Friends []Friend `json:"friends"`
}

type ChatMessage struct {
	Seq         int64     `json:"seq"`
	RoomID      int64     `json:"room_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	AvatarEmoji string    `json:"avatar_emoji"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

type PollMessagesReply struct {
	Messages   []ChatMessage `json:"messages"`
	NextCursor int64         `json:"next_cursor"`
}

func toRoom(v domain.RoomView) Room {
	return Room{
		ID:          v.ID,
		Name:        v.Name,
		MovieID:     v.MovieID,
		MovieTitle:  v.MovieTitle,
		PosterEmoji: v.PosterEmoji,
		Status:      string(v.Status),
		ViewerCount: int32(v.ViewerCount),
		CreatedAt:   v.CreatedAt,
	}
}

func toMovie(m domain.Movie) Movie {
	return Movie{
		ID:          m.ID,
		Title:       m.Title,
		Genre:       m.Genre,
		DurationMin: int32(m.DurationMin),
		Rating:      m.Rating,
		PosterEmoji: m.PosterEmoji,
	}
}

func toFriend(u domain.UserView) Friend {
	return Friend{
		ID:            u.ID,
		Name:          u.Name,
		AvatarEmoji:   u.AvatarEmoji,
		Status:        string(u.Status),
		CurrentRoomID: u.CurrentRoomID,
		WatchingTitle: u.WatchingTitle,
	}
}

func toChatMessage(m domain.MessageView) ChatMessage {
	return ChatMessage{
		Seq:         m.Seq,
		RoomID:      m.RoomID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		AvatarEmoji: m.AvatarEmoji,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}
