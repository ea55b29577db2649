package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type Config struct {
	Addr            string        // ":8080"
	ReadTimeout     time.Duration // 15s
	WriteTimeout    time.Duration // 30s
	IdleTimeout     time.Duration // 60s
	ShutdownTimeout time.Duration // 10s
}

type Server struct {
	cfg Config
	srv *http.Server
}

// New собирает сервер. onShutdown вызываются при остановке: hijacked-соединения (WebSocket)
// Shutdown сам не закрывает.
func New(cfg Config, handler http.Handler, onShutdown ...func()) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	for _, fn := range onShutdown {
		s.RegisterOnShutdown(fn)
	}
	return &Server{
		cfg: cfg,
		srv: s,
	}
}

// Run слушает адрес и блокирует до завершения ctx. Ошибка bind возвращается сразу.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("http server started", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shCtx); err != nil {
			slog.Warn("http shutdown", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
