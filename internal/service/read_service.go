package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovacev/chatter/internal/domain"
	"github.com/dkovacev/chatter/internal/metrics"
	"github.com/dkovacev/chatter/internal/repository"
)

// ReadService reconciles per-message read state with the conversation's
// cached summary.
type ReadService struct {
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	directory Directory
	notifier  Notifier
	logger    zerolog.Logger
}

func NewReadService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	directory Directory,
	logger zerolog.Logger,
) *ReadService {
	return &ReadService{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		directory: directory,
		logger:    logger,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ReadService) SetNotifier(n Notifier) {
	s.notifier = n
}

type MarkReadResult struct {
	UpdatedCount int64                `json:"updated_count"`
	Conversation *domain.Conversation `json:"conversation"`
}

// MarkRead flips every sent/delivered message addressed to the reader to
// read, then reconciles the conversation summary against the true tail of the
// log. Idempotent: a second call with no new messages updates zero rows and
// does not error.
//
// The summary is re-derived from the log rather than trusted: a message that
// landed after this request started must not leave the reader with
// unread_count == 0 next to a stale last-message snapshot.
func (s *ReadService) MarkRead(ctx context.Context, conversationID uuid.UUID, rawReader string) (*MarkReadResult, error) {
	reader, err := s.directory.Canonicalize(rawReader)
	if err != nil {
		return nil, ErrInvalidParticipant
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("looking up conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(reader) {
		return nil, ErrNotParticipant
	}

	updated, err := s.msgRepo.MarkRead(ctx, conversationID, reader)
	if err != nil {
		return nil, fmt.Errorf("marking messages read: %w", err)
	}

	// Fetch the actual newest message; the cached snapshot may be stale when
	// a send raced this request.
	newest, err := s.msgRepo.Newest(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("fetching newest message: %w", err)
	}

	// The cached status only flips when the log tail is an inbound message
	// for this reader. The unread counter resets either way: a read receipt
	// clears the reader's pending count regardless of who spoke last.
	markLast := newest != nil && newest.To == reader
	if err := s.convRepo.ClearUnread(ctx, conversationID, markLast); err != nil {
		return nil, fmt.Errorf("clearing unread count: %w", err)
	}

	result, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("re-fetching conversation: %w", err)
	}
	if result == nil {
		return nil, ErrConversationNotFound
	}

	if updated > 0 {
		metrics.MessagesMarkedRead.Add(float64(updated))
	}

	if s.notifier != nil {
		// Two events: list views only need the summary, open conversations
		// need to know which rows flipped.
		s.notifier.ConversationUpdated(result)
		s.notifier.MessagesRead(result, reader, updated)
	}

	return &MarkReadResult{UpdatedCount: updated, Conversation: result}, nil
}
