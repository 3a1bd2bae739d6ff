package server

import (
	"chat-broadcast/auth"
	"chat-broadcast/infrastructure/grpc/api"
	"log/slog"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
)

// NewGrpcServer registers the chat service behind the logging and identity interceptors.
func NewGrpcServer(log *slog.Logger, interceptor *auth.Interceptor, chatServer *ChatServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(log),
			interceptor.Unary(),
		),
		grpc.ChainStreamInterceptor(interceptor.Stream()),
	)
	s := grpc.NewServer(opts...)
	api.RegisterChatServiceServer(s, chatServer)
	return s
}
