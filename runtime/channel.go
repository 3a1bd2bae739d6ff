// Package runtime holds the broadcast channel that fans chat messages out to subscribers.
// It contains no transport, storage or identity logic.
package runtime

import (
	"chat-broadcast/contract"
	"chat-broadcast/domain"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultBufferSize is used when a channel is created with a non-positive buffer size.
const DefaultBufferSize = 256

// Stats is a point in time snapshot of a channel.
type Stats struct {
	Subscribers int
	Published   uint64
	Dropped     uint64
}

// ChatChannel broadcasts accepted messages to every current subscriber.
//
// Delivery is best-effort: each subscriber owns a bounded buffer and a message
// that does not fit is dropped for that subscriber only. Submit never blocks
// on a subscriber and never reports delivery failures.
//
// Timestamping and fan-out of one message happen under the same lock as
// subscribe and unsubscribe, so all subscribers observe one total order and
// a subscription closed concurrently never receives a partial delivery.
//
// ChatChannel is safe for concurrent use by multiple goroutines.
type ChatChannel struct {
	mu          sync.Mutex
	log         *slog.Logger
	clock       contract.Clock
	bufferSize  int
	subscribers map[uuid.UUID]*Subscription
	lastTime    time.Time
	published   uint64
	dropped     uint64
}

func NewChatChannel(log *slog.Logger, clock contract.Clock, bufferSize int) *ChatChannel {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &ChatChannel{
		log:         log,
		clock:       clock,
		bufferSize:  bufferSize,
		subscribers: make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a new listener. It only receives messages accepted after this call.
func (c *ChatChannel) Subscribe() *Subscription {
	sub := &Subscription{
		id:       uuid.New(),
		channel:  c,
		messages: make(chan domain.ChatMessage, c.bufferSize),
	}

	c.mu.Lock()
	c.subscribers[sub.id] = sub
	count := len(c.subscribers)
	c.mu.Unlock()

	c.log.Debug("Subscriber joined", "subscription_id", sub.id, "subscribers", count)
	return sub
}

// Submit stamps the message with the acceptance time and the resolved sender,
// then tries to hand it to every subscriber without waiting.
func (c *ChatChannel) Submit(text string, identity *string) domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now().UTC()
	if now.Before(c.lastTime) {
		now = c.lastTime
	}
	c.lastTime = now

	message := domain.ChatMessage{
		ID:       uuid.New(),
		UserName: domain.ResolveUserName(identity),
		Text:     text,
		Time:     now,
	}
	c.published++

	for _, sub := range c.subscribers {
		select {
		case sub.messages <- message:
		default:
			sub.dropped.Add(1)
			c.dropped++
			c.log.Debug("Subscriber buffer full, message dropped",
				"subscription_id", sub.id, "message_id", message.ID)
		}
	}
	return message
}

// SubscriberCount returns the number of active subscriptions.
func (c *ChatChannel) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

func (c *ChatChannel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Subscribers: len(c.subscribers),
		Published:   c.published,
		Dropped:     c.dropped,
	}
}

// unsubscribe removes the subscription and closes its stream.
// Closing under the channel lock guarantees Submit never sends on a closed stream.
func (c *ChatChannel) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	if _, ok := c.subscribers[sub.id]; ok {
		delete(c.subscribers, sub.id)
		close(sub.messages)
	}
	count := len(c.subscribers)
	c.mu.Unlock()

	c.log.Debug("Subscriber left", "subscription_id", sub.id, "subscribers", count)
}
