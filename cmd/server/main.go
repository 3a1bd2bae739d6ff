package main

import (
	"chat-broadcast/auth"
	"chat-broadcast/contract"
	"chat-broadcast/infrastructure/grpc/api"
	"chat-broadcast/infrastructure/grpc/server"
	"chat-broadcast/internal"
	"chat-broadcast/moderation"
	"chat-broadcast/repositories"
	"chat-broadcast/runtime"
	"chat-broadcast/runtime/workers"
	"chat-broadcast/search"
	"chat-broadcast/services"
	"chat-broadcast/sink"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run keeps every deferred close on the return path, main only maps the outcome to an exit code.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Channel and chat service options
	channel := runtime.NewChatChannel(log, nil, config.SubscriberBufferSize)
	var options []services.ChatServiceOption

	if config.ModerationEnabled {
		moderator, err := newModerator(log, config.CharReplacement)
		if err != nil {
			return exitConfig, err
		}
		options = append(options, services.WithModerator(moderator))
	}

	// 3. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewStatsWorker(log, channel, config.StatsInterval))

	// 4. Archive (BadgerDB + Bluge), relayed from the channel like any subscriber
	if config.ArchiveEnabled {
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()

		blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
		}
		defer func() {
			log.Info("Closing Bluge index...")
			_ = blugeWriter.Close()
		}()

		repository := repositories.NewMessageRepository(db, log, config.LimitMessages)
		index := search.NewMessageIndex(blugeWriter, log)
		sinks := []contract.MessageSink{sink.NewArchiveSink(repository, log), sink.NewIndexSink(index)}
		sup.Add(workers.NewSinkRelayWorker(log, channel, sinks, config.SinkTimeout))
		options = append(options, services.WithArchive(repository, index))

		if config.DebugPort > 0 {
			stats := func() map[string]any {
				s := channel.Stats()
				return map[string]any{"subscribers": s.Subscribers, "published": s.Published, "dropped": s.Dropped}
			}
			internal.StartDebugServer(ctx, log, config.DebugPort, internal.NewInspectHandler(log, repository, stats))
		}
	}

	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()
	defer func() {
		sup.Stop()
		<-supervisorDone
	}()

	// 5. Accounts
	users := repositories.NewInMemoryUserRepository()
	if err := auth.SeedUsers(users, auth.DefaultAccounts); err != nil {
		return exitRuntime, err
	}
	issuer := auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration)

	// 6. gRPC Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	chatServer := server.NewChatServer(log,
		services.NewChatService(log, channel, options...),
		services.NewAuthService(users, issuer))
	interceptor := auth.NewInterceptor(log, issuer, config.AuthRequired, api.PublicMethods...).
		RequireRole(auth.RoleUser)
	s := server.NewGrpcServer(log, interceptor, chatServer)

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting gRPC server",
			"address", address,
			"auth_required", config.AuthRequired,
			"archive_enabled", config.ArchiveEnabled,
			"moderation_enabled", config.ModerationEnabled)
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return exitRuntime, err
	}

	gracefulStop(s, shutdownTimeout)
	log.Info("Program stopped cleanly")
	return exitOK, nil
}

// gracefulStop lets in-flight calls finish. Subscribe streams never end on their
// own, so they are cut once timeout elapses.
func gracefulStop(s *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.Stop()
	}
}

func newModerator(log *slog.Logger, charReplacement string) (*moderation.Moderator, error) {
	censoredChar, err := internal.CharacterRune(charReplacement)
	if err != nil {
		return nil, err
	}
	data, err := moderation.LoadAll(moderation.DefaultDictionary())
	if err != nil {
		return nil, fmt.Errorf("loading censored words: %w", err)
	}
	log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	return moderation.NewModerator(data.Words, censoredChar)
}
