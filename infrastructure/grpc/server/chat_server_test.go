package server_test

import (
	"chat-broadcast/auth"
	"chat-broadcast/contract"
	"chat-broadcast/domain"
	"chat-broadcast/infrastructure/grpc/api"
	"chat-broadcast/infrastructure/grpc/server"
	"chat-broadcast/repositories"
	"chat-broadcast/runtime"
	"chat-broadcast/runtime/workers"
	"chat-broadcast/search"
	"chat-broadcast/services"
	"chat-broadcast/sink"
	"chat-broadcast/wire"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type harness struct {
	client  api.ChatServiceClient
	channel *runtime.ChatChannel
}

// startServer runs the whole stack over an in-memory listener.
func startServer(t *testing.T, authRequired bool) harness {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	req.NoError(err)
	t.Cleanup(func() { _ = writer.Close() })

	repository := repositories.NewMessageRepository(db, log, nil)
	index := search.NewMessageIndex(writer, log)
	channel := runtime.NewChatChannel(log, nil, 16)

	relay := workers.NewSinkRelayWorker(log, channel,
		[]contract.MessageSink{sink.NewArchiveSink(repository, log), sink.NewIndexSink(index)}, time.Second)
	go func() { _ = relay.Run(ctx) }()
	req.Eventually(func() bool { return channel.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	users := repositories.NewInMemoryUserRepository()
	req.NoError(auth.SeedUsers(users, auth.DefaultAccounts))
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	chatServer := server.NewChatServer(log,
		services.NewChatService(log, channel, services.WithArchive(repository, index)),
		services.NewAuthService(users, issuer))
	interceptor := auth.NewInterceptor(log, issuer, authRequired, api.PublicMethods...).
		RequireRole(auth.RoleUser)
	grpcServer := server.NewGrpcServer(log, interceptor, chatServer)

	listener := bufconn.Listen(1024 * 1024)
	go func() { _ = grpcServer.Serve(listener) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	t.Cleanup(func() { _ = conn.Close() })

	return harness{client: api.NewChatServiceClient(conn), channel: channel}
}

func subscribe(t *testing.T, ctx context.Context, client api.ChatServiceClient) api.ChatService_SubscribeClient {
	t.Helper()
	stream, err := client.Subscribe(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	// Header arrives once the server side is registered on the channel
	header, err := stream.Header()
	require.NoError(t, err)
	require.NotEmpty(t, header.Get(server.SubscribedHeader))
	return stream
}

func next(t *testing.T, stream api.ChatService_SubscribeClient) domain.ChatMessage {
	t.Helper()
	s, err := stream.Recv()
	require.NoError(t, err)
	msg, err := wire.ToMessage(s)
	require.NoError(t, err)
	return msg
}

func TestChatServer_Submit_Reaches_Subscribers(t *testing.T) {
	req := require.New(t)
	h := startServer(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Given an anonymous subscriber and a logged in sender
	stream := subscribe(t, ctx, h.client)
	token, err := h.client.Login(ctx, wire.Credentials("Dulan", "12345"))
	req.NoError(err)

	// When both a logged in and an anonymous message are submitted
	_, err = h.client.Submit(auth.OutgoingContext(ctx, token.GetValue()), wrapperspb.String("hello from Dulan"))
	req.NoError(err)
	_, err = h.client.Submit(ctx, wrapperspb.String("hello from nobody"))
	req.NoError(err)

	// Then the subscriber gets both, in order, with resolved names
	first := next(t, stream)
	req.Equal("Dulan", first.UserName)
	req.Equal("hello from Dulan", first.Text)
	second := next(t, stream)
	req.Equal(domain.Anonymous, second.UserName)
	req.Equal("hello from nobody", second.Text)
	req.False(second.Time.Before(first.Time))
}

func TestChatServer_Login_Refused(t *testing.T) {
	req := require.New(t)
	h := startServer(t, false)

	_, err := h.client.Login(context.Background(), wire.Credentials("Dulan", "wrong"))
	req.Equal(codes.Unauthenticated, status.Code(err))

	_, err = h.client.Login(context.Background(), wire.Credentials("Nobody", "12345"))
	req.Equal(codes.Unauthenticated, status.Code(err))

	_, err = h.client.Login(context.Background(), wire.Credentials("", ""))
	req.Equal(codes.InvalidArgument, status.Code(err))
}

func TestChatServer_Auth_Required(t *testing.T) {
	req := require.New(t)
	h := startServer(t, true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Without a token, nothing goes through
	_, err := h.client.Submit(ctx, wrapperspb.String("sneaky"))
	req.Equal(codes.Unauthenticated, status.Code(err))

	stream, err := h.client.Subscribe(ctx, &emptypb.Empty{})
	req.NoError(err)
	_, err = stream.Recv()
	req.Equal(codes.Unauthenticated, status.Code(err))

	// With a token, Login stays public and the rest opens up
	token, err := h.client.Login(ctx, wire.Credentials("Waruni", "12345"))
	req.NoError(err)
	authCtx := auth.OutgoingContext(ctx, token.GetValue())

	stream = subscribe(t, authCtx, h.client)
	_, err = h.client.Submit(authCtx, wrapperspb.String("let me in"))
	req.NoError(err)
	req.Equal("Waruni", next(t, stream).UserName)
}

func TestChatServer_Unsubscribe_On_Disconnect(t *testing.T) {
	req := require.New(t)
	h := startServer(t, false)
	ctx, cancel := context.WithCancel(context.Background())

	subscribe(t, ctx, h.client)
	// Relay worker plus the stream
	req.Equal(2, h.channel.SubscriberCount())

	cancel()
	req.Eventually(func() bool { return h.channel.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestChatServer_History_And_Search(t *testing.T) {
	req := require.New(t)
	h := startServer(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := h.client.Login(ctx, wire.Credentials("Dulan", "12345"))
	req.NoError(err)
	authCtx := auth.OutgoingContext(ctx, token.GetValue())

	for _, text := range []string{"first words", "second words", "third words"} {
		_, err = h.client.Submit(authCtx, wrapperspb.String(text))
		req.NoError(err)
	}

	// The archive is fed asynchronously by the relay
	req.Eventually(func() bool {
		res, err := h.client.History(ctx, wire.PageRequest(nil, 10))
		if err != nil {
			return false
		}
		all, _, err := wire.ToPage(res)
		return err == nil && len(all) == 3
	}, 2*time.Second, 10*time.Millisecond)

	res, err := h.client.History(ctx, wire.PageRequest(nil, 2))
	req.NoError(err)
	messages, cursor, err := wire.ToPage(res)
	req.NoError(err)

	// Newest first, with a cursor to the older page
	req.Equal("third words", messages[0].Text)
	req.Equal("second words", messages[1].Text)
	req.NotNil(cursor)

	res, err = h.client.History(ctx, wire.PageRequest(cursor, 2))
	req.NoError(err)
	messages, cursor, err = wire.ToPage(res)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("first words", messages[0].Text)
	req.Nil(cursor)

	req.Eventually(func() bool {
		res, err := h.client.Search(ctx, wrapperspb.String("second --user Dulan"))
		if err != nil {
			return false
		}
		found, _, err := wire.ToPage(res)
		return err == nil && len(found) == 1 && found[0].Text == "second words"
	}, 2*time.Second, 10*time.Millisecond)
}
