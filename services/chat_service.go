package services

import (
	"chat-broadcast/auth"
	"chat-broadcast/domain"
	"chat-broadcast/errors"
	"chat-broadcast/moderation"
	"chat-broadcast/repositories"
	"chat-broadcast/runtime"
	"chat-broadcast/search"
	"context"
	"log/slog"

	"github.com/samber/lo"
)

type IChatService interface {
	Submit(ctx context.Context, text string) domain.ChatMessage
	Join() *runtime.Subscription
	History(cursor *string, limit int) ([]domain.ChatMessage, *string, error)
	Search(ctx context.Context, input string) ([]domain.ChatMessage, error)
}

// ChatService exposes one broadcast channel to remote callers.
// The archive and the index are optional, moderation too.
type ChatService struct {
	log        *slog.Logger
	channel    *runtime.ChatChannel
	repository repositories.IMessageRepository
	index      search.IMessageIndex
	moderator  moderation.IModerator
}

type ChatServiceOption func(*ChatService)

func WithArchive(repository repositories.IMessageRepository, index search.IMessageIndex) ChatServiceOption {
	return func(s *ChatService) {
		s.repository = repository
		s.index = index
	}
}

func WithModerator(moderator moderation.IModerator) ChatServiceOption {
	return func(s *ChatService) {
		s.moderator = moderator
	}
}

func NewChatService(log *slog.Logger, channel *runtime.ChatChannel, opts ...ChatServiceOption) *ChatService {
	s := &ChatService{log: log, channel: channel}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit publishes text under the identity found in ctx, Anonymous when there is none.
func (s *ChatService) Submit(ctx context.Context, text string) domain.ChatMessage {
	var identity *string
	if userName, ok := auth.UserNameFromContext(ctx); ok {
		identity = lo.ToPtr(userName)
	}

	if s.moderator != nil {
		censored, words := s.moderator.Censor(text)
		if len(words) > 0 {
			s.log.Info("Message censored", "user_name", domain.ResolveUserName(identity), "words", words)
			text = censored
		}
	}
	return s.channel.Submit(text, identity)
}

func (s *ChatService) Join() *runtime.Subscription {
	return s.channel.Subscribe()
}

func (s *ChatService) History(cursor *string, limit int) ([]domain.ChatMessage, *string, error) {
	if s.repository == nil {
		return nil, nil, errors.ErrArchiveDisabled
	}
	return s.repository.GetMessages(cursor, limit)
}

func (s *ChatService) Search(ctx context.Context, input string) ([]domain.ChatMessage, error) {
	if s.index == nil {
		return nil, errors.ErrArchiveDisabled
	}
	return s.index.Search(ctx, search.NewSearchQuery(input))
}
