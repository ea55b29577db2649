package domain

import "time"

// Message — неизменяемая запись лога комнаты. Seq назначается хранилищем, начиная с 1.
type Message struct {
	Seq       int64     `db:"seq" json:"seq"`
	RoomID    int64     `db:"room_id" json:"room_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MessageView — сообщение вместе с автором. Для удалённого автора имя и аватар пустые.
type MessageView struct {
	Message
	UserName    string
	AvatarEmoji string
}
