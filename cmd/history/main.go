package main

import (
	"chat-broadcast/domain"
	"chat-broadcast/repositories"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the history tool.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "History error: %v\n", err)
	}
	os.Exit(code)
}

// run keeps the deferred close on every return path.
func run(args []string, out io.Writer) (int, error) {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	dbPath := flags.String("db", "./data/badger", "Path to badger DB")
	pageSize := flags.Int("page", 100, "Messages read per page")
	maxMessages := flags.Int("max", 0, "Stop after this many messages, 0 for all")
	if err := flags.Parse(args); err != nil {
		return exitConfig, err
	}
	if *pageSize <= 0 {
		return exitConfig, fmt.Errorf("page must be positive, got %d", *pageSize)
	}

	db, err := openDB(*dbPath)
	if err != nil {
		return exitRuntime, fmt.Errorf("opening badger: %w", err)
	}
	defer func() { _ = db.Close() }()

	repository := repositories.NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn), pageSize)
	messages, err := readAll(repository, *pageSize, *maxMessages)
	if err != nil {
		return exitRuntime, err
	}
	render(out, messages)
	return exitOK, nil
}

// openDB opens the archive read-only, even while the server holds the lock.
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	return badger.Open(opts)
}

// readAll walks the archive newest first, page after page.
func readAll(repository repositories.IMessageRepository, pageSize, maxMessages int) ([]domain.ChatMessage, error) {
	var all []domain.ChatMessage
	var cursor *string
	for {
		page, next, err := repository.GetMessages(cursor, pageSize)
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		all = append(all, page...)
		if maxMessages > 0 && len(all) >= maxMessages {
			return all[:maxMessages], nil
		}
		if next == nil {
			return all, nil
		}
		cursor = next
	}
}

func render(out io.Writer, messages []domain.ChatMessage) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Time", "ID", "User", "Text"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range messages {
		id := m.ID.String()
		table.Append([]string{
			m.Time.Local().Format("2006-01-02 15:04:05.000"),
			id[:8],
			m.UserName,
			m.Text,
		})
	}
	table.Render()
	fmt.Fprintf(out, "\n%d message(s)\n", len(messages))
}
