package sink

import (
	"chat-broadcast/domain"
	"chat-broadcast/repositories"
	"context"
	"fmt"
	"log/slog"
)

// ArchiveSink persists every relayed message in the archive repository.
type ArchiveSink struct {
	repository repositories.IMessageRepository
	log        *slog.Logger
}

func NewArchiveSink(repository repositories.IMessageRepository, log *slog.Logger) ArchiveSink {
	return ArchiveSink{repository: repository, log: log}
}

func (a ArchiveSink) Consume(ctx context.Context, message domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.repository.StoreMessage(message); err != nil {
		return fmt.Errorf("archiving message %s: %w", message.ID, err)
	}
	a.log.Debug("Message archived", "id", message.ID, "user_name", message.UserName)
	return nil
}
