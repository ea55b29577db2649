package grpcx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/cwrk-planet/watchparty/internal/service"
	"github.com/cwrk-planet/watchparty/pkg/errs"
)

const (
	mdUserID    = "x-user-id"
	mdRequestID = "x-request-id"
)

type Server struct {
	gw *service.Gateway
}

func NewServer(gw *service.Gateway) *Server {
	return &Server{gw: gw}
}

// NewGRPCServer собирает *grpc.Server с интерсепторами и зарегистрированным сервисом.
func NewGRPCServer(gw *service.Gateway, deadline time.Duration, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(deadline)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	}, opts...)
	gs := grpc.NewServer(opts...)
	Register(gs, NewServer(gw))
	return gs
}

// Run слушает addr и блокирует до завершения ctx.
func Run(ctx context.Context, gs *grpc.Server, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := gs.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("grpc server started", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		gs.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) ListRooms(ctx context.Context, _ *Empty) (*ListRoomsReply, error) {
	rooms, err := s.gw.ListRooms(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ListRoomsReply{Rooms: make([]Room, 0, len(rooms))}
	for _, r := range rooms {
		out.Rooms = append(out.Rooms, toRoom(r))
	}
	return out, nil
}

func (s *Server) GetRoom(ctx context.Context, in *RoomRequest) (*Room, error) {
	room, err := s.gw.GetRoom(ctx, in.RoomID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := toRoom(room)
	return &out, nil
}

func (s *Server) ListMovies(ctx context.Context, _ *Empty) (*ListMoviesReply, error) {
	movies, err := s.gw.ListMovies(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ListMoviesReply{Movies: make([]Movie, 0, len(movies))}
	for _, m := range movies {
		out.Movies = append(out.Movies, toMovie(m))
	}
	return out, nil
}

func (s *Server) ListFriends(ctx context.Context, _ *Empty) (*ListFriendsReply, error) {
	friends, err := s.gw.ListFriends(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ListFriendsReply{Friends: make([]Friend, 0, len(friends))}
	for _, f := range friends {
		out.Friends = append(out.Friends, toFriend(f))
	}
	return out, nil
}

func (s *Server) JoinRoom(ctx context.Context, in *RoomRequest) (*Room, error) {
	userID, err := userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.gw.JoinRoom(ctx, userID, in.RoomID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := toRoom(room)
	return &out, nil
}

func (s *Server) LeaveRoom(ctx context.Context, _ *Empty) (*Empty, error) {
	userID, err := userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.gw.LeaveRoom(ctx, userID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *Server) Heartbeat(ctx context.Context, _ *Empty) (*Empty, error) {
	userID, err := userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.gw.Heartbeat(ctx, userID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *Server) SendMessage(ctx context.Context, in *SendMessageRequest) (*ChatMessage, error) {
	userID, err := userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := s.gw.SendMessage(ctx, userID, in.RoomID, in.Body)
	if err != nil {
		return nil, toStatus(err)
	}
	out := toChatMessage(msg)
	return &out, nil
}

func (s *Server) PollMessages(ctx context.Context, in *PollMessagesRequest) (*PollMessagesReply, error) {
	msgs, next, err := s.gw.PollMessages(ctx, in.RoomID, in.After)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toChatMessage(m))
	}
	return &PollMessagesReply{Messages: out, NextCursor: next}, nil
}

// -------- helpers --------

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	code := errs.ToGRPC(err)
	if code == codes.Internal {
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

func userFromMD(ctx context.Context) (int64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "missing metadata")
	}
	raw := first(md.Get(mdUserID))
	if raw == "" {
		return 0, status.Error(codes.Unauthenticated, "missing x-user-id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, status.Error(codes.Unauthenticated, "invalid x-user-id")
	}
	return id, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}

	return ss[0]
}
