package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cwrk-planet/watchparty/internal/service"
	httpmw "github.com/cwrk-planet/watchparty/internal/transport/http/middleware"
	"github.com/cwrk-planet/watchparty/pkg/httputil"
)

type Deps struct {
	Gateway        *service.Gateway
	WS             http.HandlerFunc // nil — без WebSocket
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	h := NewHandler(d.Gateway)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", httpmw.HeaderUserID},
		ExposedHeaders: []string{httputil.HeaderRequestID},
		MaxAge:         300,
	}))

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})

	if d.WS != nil {
		r.Get("/ws/rooms/{id}", d.WS)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Compress(5))
		api.Use(middleware.Timeout(d.RequestTimeout))

		api.Get("/rooms", h.ListRooms)
		api.Get("/rooms/{id}", h.GetRoom)
		api.Get("/rooms/{id}/messages", h.PollMessages)
		api.Get("/movies", h.ListMovies)
		api.Get("/friends", h.ListFriends)

		// запись только с X-User-ID
		api.Group(func(pr chi.Router) {
			pr.Use(httpmw.AuthMiddleware)
			pr.Use(httpmw.HeartbeatMiddleware(d.Gateway))

			pr.Post("/rooms/{id}/join", h.JoinRoom)
			pr.Post("/rooms/{id}/messages", h.SendMessage)
			pr.Post("/presence/leave", h.LeaveRoom)
			pr.Post("/presence/heartbeat", h.Heartbeat)
		})
	})

	return r
}
