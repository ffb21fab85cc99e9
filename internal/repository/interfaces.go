package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dkovacev/chatter/internal/domain"
)

// ErrDuplicatePair is returned by ConversationRepository.Create when another
// conversation already holds the same pair key. The resolver converts it into
// a lookup retry; it is never surfaced to callers.
var ErrDuplicatePair = errors.New("conversation already exists for participant pair")

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByPhoneID(ctx context.Context, phoneID string) (*domain.Account, error)
	SetPresence(ctx context.Context, phoneID string, online bool, lastSeen time.Time) error
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	GetByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error)
	// ListForParticipant returns non-archived conversations that have at least
	// one message, newest activity first.
	ListForParticipant(ctx context.Context, phoneID string) ([]domain.Conversation, error)
	// SetLastMessage replaces the last-message snapshot and, when
	// incrementUnread is set, bumps the unread counter in the same atomic
	// row update.
	SetLastMessage(ctx context.Context, id uuid.UUID, snap domain.LastMessage, incrementUnread bool) error
	// ClearUnread resets the unread counter to zero. When markLastRead is set
	// the cached last-message status flips to "read" in the same update.
	ClearUnread(ctx context.Context, id uuid.UUID, markLastRead bool) error
	UpdateParticipants(ctx context.Context, id uuid.UUID, participants []domain.Participant) error
	Archive(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListPage returns one reverse-chronological page plus the total count.
	ListPage(ctx context.Context, conversationID uuid.UUID, page, pageSize int) ([]domain.Message, int64, error)
	// Newest returns the true tail of the conversation's log, or nil.
	Newest(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
	// MarkRead flips every sent/delivered message addressed to the recipient
	// to read and reports how many rows changed. Messages already read are
	// never touched.
	MarkRead(ctx context.Context, conversationID uuid.UUID, recipient string) (int64, error)
	DeleteByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error)
}
