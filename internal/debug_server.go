package internal

import (
	"chat-broadcast/domain"
	"chat-broadcast/repositories"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Time     string
	ID       string
	UserName string
	Text     string
}

type StatsProvider func() map[string]any

type PageData struct {
	Items  []InspectRow
	Cursor string
	Stats  map[string]any
}

// NewInspectHandler renders one archive page per request, newest first.
// Query parameters: cursor (from a previous page) and limit.
func NewInspectHandler(log *slog.Logger, repository repositories.IMessageRepository, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cursor *string
		if c := r.URL.Query().Get("cursor"); c != "" {
			cursor = lo.ToPtr(c)
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		messages, next, err := repository.GetMessages(cursor, limit)
		if err != nil {
			log.Error("Unable to read archive", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		data := PageData{
			Items:  lo.Map(messages, func(m domain.ChatMessage, _ int) InspectRow { return toRow(m) }),
			Cursor: lo.FromPtr(next),
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Error("Unable to render archive page", "error", err)
		}
	})
}

func toRow(m domain.ChatMessage) InspectRow {
	id := m.ID.String()
	return InspectRow{
		Time:     m.Time.Format(time.DateTime),
		ID:       id[:8],
		UserName: m.UserName,
		Text:     m.Text,
	}
}

// StartDebugServer serves the archive inspector on port until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/inspect", handler)

	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Starting debug server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Debug server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	return server
}
