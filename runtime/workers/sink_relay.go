package workers

import (
	"chat-broadcast/contract"
	"chat-broadcast/domain"
	"chat-broadcast/runtime"
	"context"
	"log/slog"
	"sync"
	"time"
)

var _ contract.Worker = (*SinkRelayWorker)(nil)

const DefaultSinkTimeout = 2 * time.Second

// SinkRelayWorker subscribes to a ChatChannel like any other listener and
// forwards every received message to its sinks.
//
// It gets no more guarantees than a regular subscriber: messages dropped
// because its buffer was full are simply never relayed. Each sink gets its
// own timeout so a slow sink cannot hold back the others.
type SinkRelayWorker struct {
	log         *slog.Logger
	channel     *runtime.ChatChannel
	sinks       []contract.MessageSink
	sinkTimeout time.Duration
}

func NewSinkRelayWorker(log *slog.Logger, channel *runtime.ChatChannel,
	sinks []contract.MessageSink, sinkTimeout time.Duration) *SinkRelayWorker {
	if sinkTimeout <= 0 {
		sinkTimeout = DefaultSinkTimeout
	}
	return &SinkRelayWorker{log: log, channel: channel, sinks: sinks, sinkTimeout: sinkTimeout}
}

func (w *SinkRelayWorker) Run(ctx context.Context) error {
	sub := w.channel.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping relay")
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				w.log.Debug("Subscription closed")
				return nil
			}
			w.Relay(ctx, msg)
		}
	}
}

// Relay hands one message to every sink concurrently and waits for all of them.
func (w *SinkRelayWorker) Relay(ctx context.Context, msg domain.ChatMessage) {
	var wg sync.WaitGroup
	for _, sink := range w.sinks {
		wg.Add(1)
		go func(sink contract.MessageSink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
			defer cancel()
			if err := sink.Consume(sinkCtx, msg); err != nil {
				w.log.Error("Sink failed to consume message",
					"message_id", msg.ID, "error", err)
			}
		}(sink)
	}
	wg.Wait()
}
