// Package wire maps chat messages to protobuf well-known types.
// The same encoding is used on the gRPC stream and for archived values.
package wire

import (
	"chat-broadcast/domain"
	"chat-broadcast/errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	FieldID       = "id"
	FieldUserName = "user_name"
	FieldText     = "text"
	FieldTime     = "time"
	FieldMessages = "messages"
	FieldCursor   = "cursor"
	FieldLimit    = "limit"
	FieldUsername = "username"
	FieldPassword = "password"
)

// FromMessage encodes a message. Time is carried as RFC 3339 with nanoseconds.
func FromMessage(msg domain.ChatMessage) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldID:       structpb.NewStringValue(msg.ID.String()),
		FieldUserName: structpb.NewStringValue(msg.UserName),
		FieldText:     structpb.NewStringValue(msg.Text),
		FieldTime:     structpb.NewStringValue(msg.Time.UTC().Format(time.RFC3339Nano)),
	}}
}

func ToMessage(s *structpb.Struct) (domain.ChatMessage, error) {
	if s == nil {
		return domain.ChatMessage{}, errors.ErrInvalidMessage
	}
	id, err := uuid.Parse(stringField(s, FieldID))
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: id: %v", errors.ErrInvalidMessage, err)
	}
	at, err := time.Parse(time.RFC3339Nano, stringField(s, FieldTime))
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: time: %v", errors.ErrInvalidMessage, err)
	}
	return domain.ChatMessage{
		ID:       id,
		UserName: stringField(s, FieldUserName),
		Text:     stringField(s, FieldText),
		Time:     at.UTC(),
	}, nil
}

// FromPage encodes a list of messages with an optional paging cursor.
func FromPage(messages []domain.ChatMessage, cursor *string) *structpb.Struct {
	values := lo.Map(messages, func(item domain.ChatMessage, _ int) *structpb.Value {
		return structpb.NewStructValue(FromMessage(item))
	})
	page := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldMessages: structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
	if cursor != nil {
		page.Fields[FieldCursor] = structpb.NewStringValue(*cursor)
	}
	return page
}

func ToPage(s *structpb.Struct) ([]domain.ChatMessage, *string, error) {
	if s == nil {
		return nil, nil, errors.ErrInvalidMessage
	}
	var messages []domain.ChatMessage
	for _, v := range s.GetFields()[FieldMessages].GetListValue().GetValues() {
		msg, err := ToMessage(v.GetStructValue())
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, msg)
	}
	var cursor *string
	if v, ok := s.GetFields()[FieldCursor]; ok {
		cursor = lo.ToPtr(v.GetStringValue())
	}
	return messages, cursor, nil
}

// PageRequest builds a History request. Zero limit means the server default.
func PageRequest(cursor *string, limit int) *structpb.Struct {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if cursor != nil {
		s.Fields[FieldCursor] = structpb.NewStringValue(*cursor)
	}
	if limit > 0 {
		s.Fields[FieldLimit] = structpb.NewNumberValue(float64(limit))
	}
	return s
}

func FromPageRequest(s *structpb.Struct) (*string, int) {
	var cursor *string
	if v, ok := s.GetFields()[FieldCursor]; ok {
		cursor = lo.ToPtr(v.GetStringValue())
	}
	return cursor, int(s.GetFields()[FieldLimit].GetNumberValue())
}

func Credentials(username, password string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldUsername: structpb.NewStringValue(username),
		FieldPassword: structpb.NewStringValue(password),
	}}
}

func FromCredentials(s *structpb.Struct) (string, string) {
	return stringField(s, FieldUsername), stringField(s, FieldPassword)
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}
