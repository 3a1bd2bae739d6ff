package runtime

import (
	"chat-broadcast/domain"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is one listener of a ChatChannel.
// Its stream never completes while subscribed and is closed once by Close.
type Subscription struct {
	id       uuid.UUID
	channel  *ChatChannel
	messages chan domain.ChatMessage
	dropped  atomic.Uint64
	once     sync.Once
}

func (s *Subscription) ID() uuid.UUID { return s.id }

// Messages is the live stream of messages accepted after Subscribe.
func (s *Subscription) Messages() <-chan domain.ChatMessage {
	return s.messages
}

// Dropped counts messages lost because this subscriber's buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes. Safe to call several times and concurrently with Submit.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.channel.unsubscribe(s)
	})
}
