package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/watchparty/pkg/errs"
	"github.com/cwrk-planet/watchparty/pkg/logger"
)

type envelope map[string]any

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// OK — «успешный» ответ с обёрткой.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope{"data": data})
}

// Error — унифицированная ошибка (message + meta).
func Error(ctx context.Context, w http.ResponseWriter, status int, msg string, meta map[string]any) {
	if reqID, ok := FromContext(ctx); ok {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["req_id"] = reqID
	}
	payload := envelope{
		"error": envelope{
			"message": msg,
		},
	}
	if len(meta) > 0 {
		payload["error"].(envelope)["meta"] = meta
	}
	JSON(w, status, payload)
}

// ErrorFrom отвечает по виду ошибки. Текст внутренних ошибок наружу не отдаём.
func ErrorFrom(ctx context.Context, w http.ResponseWriter, err error) {
	status := errs.ToHTTP(err)
	kind := errs.Kind(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromContext(ctx).Error("request failed", "err", err)
		msg = "internal error"
	}
	Error(ctx, w, status, msg, map[string]any{"kind": kind})
}
