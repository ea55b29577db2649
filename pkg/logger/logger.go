package logger

import (
	"context"
	"log/slog"
	"os"
)

var def *slog.Logger

// Init настраивает slog по конфигу и делает его логгером по умолчанию.
func Init(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "watchparty"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	base := slog.New(h.WithAttrs(commonAttrs(cfg)))
	slog.SetDefault(base)
	def = base

	return base
}

func L() *slog.Logger {
	if def != nil {
		return def
	}

	return Init(Config{})
}

type ctxKey struct{}

// WithContext кладёт логгер (обычно с req_id) в контекст.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext достаёт логгер из контекста, иначе глобальный; добавляет trace_id/span_id, если есть.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok || l == nil {
		l = L()
	}
	if attrs := AttrsFromCtx(ctx); len(attrs) > 0 {
		args := make([]any, len(attrs))
		for i, a := range attrs {
			args[i] = a
		}
		l = l.With(args...)
	}
	return l
}
