package httpmw

import (
	"context"
	"net/http"

	"github.com/cwrk-planet/watchparty/pkg/logger"
)

type Heartbeater interface {
	Heartbeat(ctx context.Context, userID int64) error
}

// HeartbeatMiddleware отмечает активность пользователя на каждом авторизованном запросе.
func HeartbeatMiddleware(hb Heartbeater) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := UserIDFromCtx(r.Context()); userID != 0 {
				// best-effort: ошибки не прерывают запрос
				if err := hb.Heartbeat(r.Context(), userID); err != nil {
					logger.FromContext(r.Context()).Debug("heartbeat skipped", "user_id", userID, "err", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
