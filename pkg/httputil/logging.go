package httputil

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cwrk-planet/watchparty/pkg/logger"
)

// MiddlewareLogging логирует метод, путь, статус и длительность. Тела не пишем: в них переписка.
func MiddlewareLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &logResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)

		level := slog.LevelInfo
		switch {
		case lrw.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case lrw.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		logger.FromContext(r.Context()).Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.status,
			"bytes", lrw.bytes,
			"duration", time.Since(start).String(),
			"hijacked", lrw.hijacked,
		)
	})
}

type logResponseWriter struct {
	http.ResponseWriter
	status   int
	bytes    int
	hijacked bool
}

func (w *logResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *logResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n

	return n, err
}

// Hijack нужен для апгрейда до WebSocket.
func (w *logResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.hijacked = true
	if w.status == 0 {
		w.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (w *logResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
