package server

import (
	"chat-broadcast/errors"
	"chat-broadcast/infrastructure/grpc/api"
	"chat-broadcast/services"
	"chat-broadcast/wire"
	"context"
	"log/slog"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SubscribedHeader is sent once the stream is registered on the channel.
// Clients waiting on it are sure to receive any message submitted afterwards.
const SubscribedHeader = "x-subscription-id"

type ChatServer struct {
	api.UnimplementedChatServiceServer
	chatService services.IChatService
	authService services.IAuthService
	log         *slog.Logger
}

func NewChatServer(log *slog.Logger, chatService services.IChatService, authService services.IAuthService) *ChatServer {
	return &ChatServer{chatService: chatService, authService: authService, log: log}
}

func (s *ChatServer) Login(_ context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	username, password := wire.FromCredentials(req)
	token, err := s.authService.Login(username, password)
	if err != nil {
		s.log.Warn("Login refused", "username", username, "error", err)
		return nil, errors.MapToGRPCError(err)
	}
	return wrapperspb.String(token.String()), nil
}

// Submit hands the text to the channel. The sender receives its own message
// through Subscribe like any other listener, nothing is echoed here.
func (s *ChatServer) Submit(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	s.chatService.Submit(ctx, req.GetValue())
	return &emptypb.Empty{}, nil
}

// Subscribe blocks until the client goes away. The subscription is released
// on return so the channel stops delivering to it.
func (s *ChatServer) Subscribe(_ *emptypb.Empty, stream api.ChatService_SubscribeServer) error {
	sub := s.chatService.Join()
	defer sub.Close()

	if err := stream.SendHeader(metadata.Pairs(SubscribedHeader, sub.ID().String())); err != nil {
		return err
	}
	s.log.Debug("Stream subscribed", "subscription_id", sub.ID())

	for {
		select {
		case <-stream.Context().Done():
			s.log.Debug("Stream disconnected", "subscription_id", sub.ID(), "dropped", sub.Dropped())
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			if err := stream.Send(wire.FromMessage(msg)); err != nil {
				s.log.Error("Failed to push message to stream",
					"subscription_id", sub.ID(),
					"error", err)
				return err
			}
		}
	}
}

func (s *ChatServer) History(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cursor, limit := wire.FromPageRequest(req)
	messages, next, err := s.chatService.History(cursor, limit)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return wire.FromPage(messages, next), nil
}

func (s *ChatServer) Search(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	messages, err := s.chatService.Search(ctx, req.GetValue())
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return wire.FromPage(messages, nil), nil
}
