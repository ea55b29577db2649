package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "watchparty.v1.SyncGateway"

// SyncGatewayServer — контракт gRPC-сервиса. Сообщения кодируются JSON-кодеком.
type SyncGatewayServer interface {
	ListRooms(ctx context.Context, in *Empty) (*ListRoomsReply, error)
	GetRoom(ctx context.Context, in *RoomRequest) (*Room, error)
	ListMovies(ctx context.Context, in *Empty) (*ListMoviesReply, error)
	ListFriends(ctx context.Context, in *Empty) (*ListFriendsReply, error)
	JoinRoom(ctx context.Context, in *RoomRequest) (*Room, error)
	LeaveRoom(ctx context.Context, in *Empty) (*Empty, error)
	Heartbeat(ctx context.Context, in *Empty) (*Empty, error)
	SendMessage(ctx context.Context, in *SendMessageRequest) (*ChatMessage, error)
	PollMessages(ctx context.Context, in *PollMessagesRequest) (*PollMessagesReply, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListRooms", SyncGatewayServer.ListRooms),
		unary("GetRoom", SyncGatewayServer.GetRoom),
		unary("ListMovies", SyncGatewayServer.ListMovies),
		unary("ListFriends", SyncGatewayServer.ListFriends),
		unary("JoinRoom", SyncGatewayServer.JoinRoom),
		unary("LeaveRoom", SyncGatewayServer.LeaveRoom),
		unary("Heartbeat", SyncGatewayServer.Heartbeat),
		unary("SendMessage", SyncGatewayServer.SendMessage),
		unary("PollMessages", SyncGatewayServer.PollMessages),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "watchparty/v1/sync_gateway",
}

func Register(s grpc.ServiceRegistrar, srv SyncGatewayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(SyncGatewayServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "decode %s: %v", name, err)
			}
			s := srv.(SyncGatewayServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}
