package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/cwrk-planet/watchparty/pkg/logger"
)

const defaultDeadline = 10 * time.Second

// Unary logging + recovery + timeout guard (если у вызова нет deadline)
func UnaryServerInterceptor(deadline time.Duration) grpc.UnaryServerInterceptor {
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deadline)
			defer cancel()
		}
		ctx = withRequestLogger(ctx)
		log := logger.FromContext(ctx)

		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc unary panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			level := slog.LevelInfo
			if err != nil {
				level = slog.LevelWarn
			}
			log.Log(ctx, level, "grpc unary",
				"method", info.FullMethod,
				"code", status.Code(err).String(),
				"dur_ms", time.Since(start).Milliseconds(),
				"err", errString(err))
		}()

		return handler(ctx, req)
	}
}

func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				slog.Error("grpc stream panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			slog.Info("grpc stream",
				"method", info.FullMethod,
				"dur_ms", time.Since(start).Milliseconds(),
				"err", errString(err))
		}()

		return handler(srv, ss)
	}
}

// withRequestLogger кладёт в контекст логгер с req_id из metadata.
func withRequestLogger(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	if rid := first(md.Get(mdRequestID)); rid != "" {
		return logger.WithContext(ctx, logger.L().With("req_id", rid))
	}
	return ctx
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
