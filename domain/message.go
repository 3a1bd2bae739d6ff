// Package domain contains core concepts of the chat system.
// This file defines ChatMessage and the sender attribution rule.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Anonymous is the sender name used when no identity is available.
const Anonymous = "Anonymous"

// ChatMessage represents an immutable chat message accepted by a channel.
type ChatMessage struct {
	ID       uuid.UUID // unique identifier
	UserName string
	Text     string
	Time     time.Time
}

// ResolveUserName returns the identity when present and non-empty, Anonymous otherwise.
func ResolveUserName(identity *string) string {
	if identity == nil || *identity == "" {
		return Anonymous
	}
	return *identity
}
