package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/watchparty/internal/service"
	httpmw "github.com/cwrk-planet/watchparty/internal/transport/http/middleware"
	"github.com/cwrk-planet/watchparty/pkg/errs"
	"github.com/cwrk-planet/watchparty/pkg/httputil"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	gw *service.Gateway
}

func NewHandler(gw *service.Gateway) *Handler {
	return &Handler{gw: gw}
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.gw.ListRooms(r.Context())
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	httputil.OK(w, mapSlice(rooms, toRoomItem))
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := idParam(r)
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	room, err := h.gw.GetRoom(r.Context(), roomID)
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	httputil.OK(w, toRoomItem(room))
}

// GET /movies
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.gw.ListMovies(r.Context())
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	httputil.OK(w, mapSlice(movies, toMovieItem))
}

// GET /friends
func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.gw.ListFriends(r.Context())
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	httputil.OK(w, mapSlice(friends, toFriendItem))
}

// POST /rooms/{id}/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := idParam(r)
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	room, err := h.gw.JoinRoom(r.Context(), httpmw.UserIDFromCtx(r.Context()), roomID)
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	httputil.OK(w, toRoomItem(room))
}

// POST /presence/leave
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.LeaveRoom(r.Context(), httpmw.UserIDFromCtx(r.Context())); err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "left"})
}

// POST /presence/heartbeat
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.Heartbeat(r.Context(), httpmw.UserIDFromCtx(r.Context())); err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "ok"})
}

// POST /rooms/{id}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomID, err := idParam(r)
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid JSON", map[string]any{"kind": "invalid_input"})
		return
	}

	msg, err := h.gw.SendMessage(r.Context(), httpmw.UserIDFromCtx(r.Context()), roomID, req.Body)
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{"data": ToMessageItem(msg)})
}

// GET /rooms/{id}/messages?after=
func (h *Handler) PollMessages(w http.ResponseWriter, r *http.Request) {
	roomID, err := idParam(r)
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}

	var after int64
	if s := r.URL.Query().Get("after"); s != "" {
		after, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			httputil.ErrorFrom(r.Context(), w, fmt.Errorf("after=%q: %w", s, errs.ErrInvalidInput))
			return
		}
	}

	msgs, next, err := h.gw.PollMessages(r.Context(), roomID, after)
	if err != nil {
		httputil.ErrorFrom(r.Context(), w, err)
		return
	}
	httputil.OK(w, PollResponse{Items: mapSlice(msgs, ToMessageItem), NextCursor: next})
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("room id %q: %w", raw, errs.ErrInvalidInput)
	}
	return id, nil
}
