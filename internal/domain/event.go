package domain

import "time"

type EventType string

const (
	EventMessageAppended EventType = "message_appended"
	EventUserJoined      EventType = "user_joined"
	EventUserLeft        EventType = "user_left"
)

// Event — подсказка «в комнате что-то изменилось». Состояние клиенты перечитывают по курсору.
type Event struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	RoomID int64     `json:"room_id"`
	UserID int64     `json:"user_id"`
	Seq    int64     `json:"seq,omitempty"`
	At     time.Time `json:"at"`
}
