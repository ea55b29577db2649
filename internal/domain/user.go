package domain

import "time"

type UserStatus string

const (
	UserOnline  UserStatus = "online"
	UserOffline UserStatus = "offline"
)

type User struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	AvatarEmoji string `db:"avatar_emoji"`
}

// Presence — состояние пользователя в трекере. RoomID == 0 означает «ни в одной комнате».
type Presence struct {
	UserID   int64
	RoomID   int64
	Status   UserStatus
	LastSeen time.Time
}

func (p Presence) InRoom() bool { return p.RoomID != 0 }

// UserView: строка списка друзей.
type UserView struct {
	User
	Status        UserStatus
	CurrentRoomID int64
	WatchingTitle string
}
