package main

import (
	"bufio"
	"chat-broadcast/auth"
	"chat-broadcast/domain"
	"chat-broadcast/infrastructure/grpc/api"
	"chat-broadcast/wire"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `envconfig:"CHAT_SERVER_ADDR" default:"localhost:50051"`
	// CHAT_USERNAME empty means posting as Anonymous
	Username string `envconfig:"CHAT_USERNAME"`
	Password string `envconfig:"CHAT_PASSWORD"`
	Colours  bool   `envconfig:"CHAT_COLOURS" default:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run logs in when credentials are given, prints the live stream and submits
// every stdin line. The /history and /search commands query the archive.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	color.Enable = config.Colours

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(config.ServerAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()
	client := api.NewChatServiceClient(conn)

	if config.Username != "" {
		token, err := client.Login(ctx, wire.Credentials(config.Username, config.Password))
		if err != nil {
			return exitRuntime, fmt.Errorf("login failed: %w", err)
		}
		ctx = auth.OutgoingContext(ctx, token.GetValue())
	}

	stream, err := client.Subscribe(ctx, &emptypb.Empty{})
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open stream: %w", err)
	}
	if _, err := stream.Header(); err != nil {
		return exitRuntime, fmt.Errorf("failed to subscribe: %w", err)
	}
	color.Green.Printf(">>> Connected to %s as %s (Ctrl+C to quit)\n", config.ServerAddress, displayName(config.Username))

	errChan := make(chan error, 1)
	go func() {
		errChan <- receive(stream, os.Stdout)
	}()
	go func() {
		errChan <- send(ctx, log, client, os.Stdin, os.Stdout)
	}()

	select {
	case <-ctx.Done():
		return exitOK, nil
	case err := <-errChan:
		if err == nil || ctx.Err() != nil {
			return exitOK, nil
		}
		return exitRuntime, err
	}
}

func displayName(username string) string {
	if username == "" {
		return domain.Anonymous
	}
	return username
}

func receive(stream api.ChatService_SubscribeClient, out io.Writer) error {
	for {
		s, err := stream.Recv()
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}
		msg, err := wire.ToMessage(s)
		if err != nil {
			return err
		}
		printMessage(out, msg)
	}
}

type command int

const (
	cmdSkip command = iota
	cmdSubmit
	cmdHistory
	cmdSearch
)

// parseLine tells a command from plain chat text. Only the exact "/history"
// and "/search <query>" forms are commands, anything else is sent verbatim.
func parseLine(line string) (command, string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return cmdSkip, ""
	case trimmed == "/history":
		return cmdHistory, ""
	case strings.HasPrefix(trimmed, "/search "):
		if query := strings.TrimSpace(strings.TrimPrefix(trimmed, "/search ")); query != "" {
			return cmdSearch, query
		}
	}
	return cmdSubmit, line
}

func send(ctx context.Context, log *slog.Logger, client api.ChatServiceClient, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		var err error
		switch cmd, arg := parseLine(scanner.Text()); cmd {
		case cmdSkip:
			continue
		case cmdHistory:
			err = history(ctx, client, out)
		case cmdSearch:
			err = searchArchive(ctx, client, arg, out)
		default:
			_, err = client.Submit(ctx, wrapperspb.String(arg))
		}
		if err != nil {
			log.Error("Request failed", "error", err)
			color.Fprintf(out, "<red>%v</>\n", err)
		}
	}
	return scanner.Err()
}

func history(ctx context.Context, client api.ChatServiceClient, out io.Writer) error {
	res, err := client.History(ctx, wire.PageRequest(nil, 20))
	if err != nil {
		return err
	}
	messages, _, err := wire.ToPage(res)
	if err != nil {
		return err
	}
	// Oldest first on screen, like the live stream
	for i := len(messages) - 1; i >= 0; i-- {
		printMessage(out, messages[i])
	}
	return nil
}

func searchArchive(ctx context.Context, client api.ChatServiceClient, query string, out io.Writer) error {
	res, err := client.Search(ctx, wrapperspb.String(query))
	if err != nil {
		return err
	}
	messages, _, err := wire.ToPage(res)
	if err != nil {
		return err
	}
	color.Fprintf(out, "<cyan>%d result(s)</>\n", len(messages))
	for _, m := range messages {
		printMessage(out, m)
	}
	return nil
}

func printMessage(out io.Writer, msg domain.ChatMessage) {
	name := color.Yellow.Sprint(msg.UserName)
	if msg.UserName == domain.Anonymous {
		name = color.Gray.Sprint(msg.UserName)
	}
	fmt.Fprintf(out, "[%s] %s: %s\n",
		color.Cyan.Sprint(msg.Time.Local().Format(time.TimeOnly)), name, msg.Text)
}
