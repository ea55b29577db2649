package ws

import (
	"encoding/json"
	"time"
)

// Типы кадров в WS
const (
	TypeState   = "state"    // снапшот комнаты: число зрителей и последнее событие присутствия
	TypeChat    = "chat"     // чат-сообщение из лога, приходит строго по seq
	TypeChatAck = "chat_ack" // подтверждение отправки отправителю (НЕ сообщение)
	TypeError   = "error"    // ошибка обработки кадра клиента
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type StatePayload struct {
	RoomID      int64  `json:"room_id"`
	ViewerCount int    `json:"viewer_count"`
	Event       string `json:"event,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
}

type ChatPayload struct {
	Seq         int64     `json:"seq"`
	RoomID      int64     `json:"room_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	AvatarEmoji string    `json:"avatar_emoji"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatRequest — кадр chat от клиента. ClientID возвращается в ack для снятия pending.
type ChatRequest struct {
	Body     string `json:"body"`
	ClientID string `json:"client_id,omitempty"`
}

type ChatAckPayload struct {
	Seq      int64  `json:"seq"`
	ClientID string `json:"client_id,omitempty"`
}

type ErrorPayload struct {
	Message  string `json:"message"`
	Kind     string `json:"kind"`
	ClientID string `json:"client_id,omitempty"`
}

// inbound: кадр от клиента, payload разбирается по type.
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
