package ws

import (
	"sync"
)

// Hub хранит живые соединения: по нему считаем подключения и закрываем всё при остановке.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]map[*wsConn]struct{} // roomID -> set of connections
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[int64]map[*wsConn]struct{})}
}

func (h *Hub) Add(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[c.roomID]
	if !ok {
		rs = make(map[*wsConn]struct{})
		h.rooms[c.roomID] = rs
	}
	rs[c] = struct{}{}
}

func (h *Hub) Remove(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[c.roomID]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
}

func (h *Hub) Count(roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// CloseAll закрывает все соединения; их обработчики завершатся сами.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*wsConn, 0)
	for _, rs := range h.rooms {
		for c := range rs {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
