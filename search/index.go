// Package search indexes archived chat messages for full text lookup.
package search

import (
	"chat-broadcast/domain"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

const (
	fieldID       = "_id"
	fieldUserName = "user_name"
	fieldText     = "text"
	fieldLang     = "lang"
	fieldTime     = "time"
)

type IMessageIndex interface {
	Index(ctx context.Context, message domain.ChatMessage) error
	Search(ctx context.Context, query Query) ([]domain.ChatMessage, error)
}

// MessageIndex stores messages in a bluge index, newest first on search.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index adds or replaces the document of a message. The detected language is
// stored as a keyword so searches can filter on it.
func (i *MessageIndex) Index(_ context.Context, message domain.ChatMessage) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField(fieldUserName, message.UserName).StoreValue()).
		AddField(bluge.NewTextField(fieldText, message.Text).StoreValue()).
		AddField(bluge.NewKeywordField(fieldLang, DetectLanguage(message.Text))).
		AddField(bluge.NewDateTimeField(fieldTime, message.Time).StoreValue().Sortable())

	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("indexing message %s: %w", message.ID, err)
	}
	return nil
}

func (i *MessageIndex) Search(ctx context.Context, query Query) ([]domain.ChatMessage, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	request := bluge.NewTopNSearch(limit, buildQuery(query)).SortBy([]string{"-" + fieldTime})

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var res []domain.ChatMessage
	match, err := iterator.Next()
	for err == nil && match != nil {
		var msg domain.ChatMessage
		var visitErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldID:
				msg.ID, visitErr = uuid.ParseBytes(value)
			case fieldUserName:
				msg.UserName = string(value)
			case fieldText:
				msg.Text = string(value)
			case fieldTime:
				var at time.Time
				at, visitErr = bluge.DecodeDateTime(value)
				msg.Time = at.UTC()
			}
			return visitErr == nil
		})
		if err != nil {
			return nil, err
		}
		if visitErr != nil {
			return nil, fmt.Errorf("decoding stored fields: %w", visitErr)
		}
		res = append(res, msg)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	i.log.Debug("Archive searched", "terms", query.Terms, "results", len(res))
	return res, nil
}

func buildQuery(query Query) bluge.Query {
	boolean := bluge.NewBooleanQuery()
	clauses := 0
	if query.Terms != "" {
		boolean.AddMust(bluge.NewMatchQuery(query.Terms).SetField(fieldText))
		clauses++
	}
	if query.UserName != "" {
		boolean.AddMust(bluge.NewTermQuery(query.UserName).SetField(fieldUserName))
		clauses++
	}
	if query.Lang != "" {
		boolean.AddMust(bluge.NewTermQuery(query.Lang).SetField(fieldLang))
		clauses++
	}
	if clauses == 0 {
		return bluge.NewMatchAllQuery()
	}
	return boolean
}

// DetectLanguage returns the ISO 639-1 code of the text, empty when unknown.
func DetectLanguage(text string) string {
	return whatlanggo.Detect(text).Lang.Iso6391()
}
