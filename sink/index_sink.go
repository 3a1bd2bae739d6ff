package sink

import (
	"chat-broadcast/domain"
	"chat-broadcast/search"
	"context"
)

// IndexSink makes relayed messages searchable.
type IndexSink struct {
	index search.IMessageIndex
}

func NewIndexSink(index search.IMessageIndex) IndexSink {
	return IndexSink{index: index}
}

func (i IndexSink) Consume(ctx context.Context, message domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.index.Index(ctx, message)
}
