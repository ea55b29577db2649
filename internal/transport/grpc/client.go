package grpcx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/cwrk-planet/watchparty/pkg/httputil"
)

type Options struct {
	Target      string
	Timeout     time.Duration
	DialOptions []grpc.DialOption
}

// Client — типизированный клиент SyncGateway поверх JSON-кодека.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

func NewClient(opts Options) (*Client, error) {
	if opts.Target == "" {
		return nil, fmt.Errorf("sync gateway client: empty target")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts.DialOptions...)

	conn, err := grpc.NewClient(opts.Target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("sync gateway client: new client failed: %w", err)
	}
	return &Client{conn: conn, timeout: opts.Timeout}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var out ListRoomsReply
	if err := c.invoke(ctx, "ListRooms", 0, &Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (c *Client) GetRoom(ctx context.Context, roomID int64) (Room, error) {
	var out Room
	err := c.invoke(ctx, "GetRoom", 0, &RoomRequest{RoomID: roomID}, &out)
	return out, err
}

func (c *Client) ListMovies(ctx context.Context) ([]Movie, error) {
	var out ListMoviesReply
	if err := c.invoke(ctx, "ListMovies", 0, &Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Movies, nil
}

func (c *Client) ListFriends(ctx context.Context) ([]Friend, error) {
	var out ListFriendsReply
	if err := c.invoke(ctx, "ListFriends", 0, &Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Friends, nil
}

func (c *Client) JoinRoom(ctx context.Context, userID, roomID int64) (Room, error) {
	var out Room
	err := c.invoke(ctx, "JoinRoom", userID, &RoomRequest{RoomID: roomID}, &out)
	return out, err
}

func (c *Client) LeaveRoom(ctx context.Context, userID int64) error {
	return c.invoke(ctx, "LeaveRoom", userID, &Empty{}, &Empty{})
}

func (c *Client) Heartbeat(ctx context.Context, userID int64) error {
	return c.invoke(ctx, "Heartbeat", userID, &Empty{}, &Empty{})
}

func (c *Client) SendMessage(ctx context.Context, userID, roomID int64, body string) (ChatMessage, error) {
	var out ChatMessage
	err := c.invoke(ctx, "SendMessage", userID, &SendMessageRequest{RoomID: roomID, Body: body}, &out)
	return out, err
}

func (c *Client) PollMessages(ctx context.Context, roomID, after int64) (PollMessagesReply, error) {
	var out PollMessagesReply
	err := c.invoke(ctx, "PollMessages", 0, &PollMessagesRequest{RoomID: roomID, After: after}, &out)
	return out, err
}

func (c *Client) invoke(ctx context.Context, method string, userID int64, in, out any) error {
	ctx, cancel := context.WithTimeout(withOutboundMeta(ctx, userID), c.timeout)
	defer cancel()
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
}

// withOutboundMeta добавляет x-request-id и x-user-id в metadata.
func withOutboundMeta(ctx context.Context, userID int64) context.Context {
	if rid, ok := httputil.FromContext(ctx); ok && rid != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, mdRequestID, rid)
	}
	if userID != 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, mdUserID, strconv.FormatInt(userID, 10))
	}
	return ctx
}
