package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dkovacev/chatter/internal/domain"
)

// Notifier broadcasts real-time events to connected clients. Publish failures
// are the notifier's problem; services treat every call as fire-and-forget
// because the committed write, not the event, is the source of truth.
type Notifier interface {
	MessageCreated(conversationID uuid.UUID, msg *domain.Message)
	ConversationUpdated(conv *domain.Conversation)
	MessagesRead(conv *domain.Conversation, readerID string, updated int64)
	ConversationDeleted(conversationID uuid.UUID)
}

// Presence answers whether an account has at least one live connection.
type Presence interface {
	IsOnline(phoneID string) bool
}

// Directory is the identity boundary consumed by the services: one
// canonicalization rule and account resolution behind it.
type Directory interface {
	Canonicalize(identifier string) (string, error)
	Resolve(ctx context.Context, identifier string) (*domain.Account, error)
}
