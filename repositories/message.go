//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-broadcast/domain"
	"chat-broadcast/wire"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	messagePrefix       = "msg:"
	defaultLimitMessage = 50
)

type IMessageRepository interface {
	StoreMessage(message domain.ChatMessage) error
	GetMessages(cursor *string, limit int) ([]domain.ChatMessage, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages int
}

// NewMessageRepository builds an archive. limitMessages caps a page, nil means 50.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	limit := defaultLimitMessage
	if limitMessages != nil && *limitMessages > 0 {
		limit = *limitMessages
	}
	return MessageRepository{db: db, log: log, limitMessages: limit}
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     are accepted at the same nanosecond.
func (m MessageRepository) StoreMessage(message domain.ChatMessage) error {
	key := fmt.Sprintf("%s%019d:%s", messagePrefix, message.Time.UnixNano(), message.ID)
	bytes, err := proto.Marshal(wire.FromMessage(message))
	if err != nil {
		return fmt.Errorf("encoding message %s: %w", message.ID, err)
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetMessages returns archived messages newest first.
// The returned cursor is the key suffix of the last message of a full page and
// must be passed back to fetch the next one; it is nil once the archive is exhausted.
func (m MessageRepository) GetMessages(cursor *string, limit int) ([]domain.ChatMessage, *string, error) {
	if limit <= 0 || limit > m.limitMessages {
		limit = m.limitMessages
	}

	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seeking past the newest possible key, then walking back in time
			seekKey = append([]byte(messagePrefix), []byte("9999999999999999999~")...)
		default:
			seekKey = append([]byte(messagePrefix), []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(byteMessages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]domain.ChatMessage, 0, len(byteMessages))
	for _, b := range byteMessages {
		var s structpb.Struct
		if err = proto.Unmarshal(b, &s); err != nil {
			return nil, nil, err
		}
		message, err := wire.ToMessage(&s)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}

	if len(messages) < limit {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}
