package httpmw

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/cwrk-planet/watchparty/pkg/httputil"
)

type ctxKey string

const (
	HeaderUserID        = "X-User-ID"
	ctxKeyUserID ctxKey = "user_id"
)

// AuthMiddleware требует X-User-ID (int64). Токены не проверяются: личность приходит от вызывающего.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if raw == "" {
			httputil.Error(r.Context(), w, http.StatusUnauthorized, "missing X-User-ID", nil)
			return
		}

		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || uid <= 0 {
			httputil.Error(r.Context(), w, http.StatusUnauthorized, "invalid X-User-ID (must be positive int64)", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

func UserIDFromCtx(ctx context.Context) int64 {
	if v := ctx.Value(ctxKeyUserID); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
