package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovacev/chatter/internal/domain"
	"github.com/dkovacev/chatter/internal/identity"
	"github.com/dkovacev/chatter/internal/metrics"
	"github.com/dkovacev/chatter/internal/repository"
)

var (
	ErrInvalidParticipant   = errors.New("invalid participant identifier")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
)

type ConversationService struct {
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	directory Directory
	notifier  Notifier
	logger    zerolog.Logger
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	directory Directory,
	logger zerolog.Logger,
) *ConversationService {
	return &ConversationService{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		directory: directory,
		logger:    logger,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ConversationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Resolve finds or creates the single conversation for an unordered pair of
// participants. Idempotent: Resolve(a, b) and Resolve(b, a) always land on the
// same record. A duplicate-create race loses against the pair-key unique index
// and is retried as a lookup, never surfaced.
func (s *ConversationService) Resolve(ctx context.Context, rawA, rawB string) (*domain.Conversation, error) {
	a, err := s.directory.Canonicalize(rawA)
	if err != nil {
		return nil, ErrInvalidParticipant
	}
	b, err := s.directory.Canonicalize(rawB)
	if err != nil {
		return nil, ErrInvalidParticipant
	}
	if a == b {
		return nil, ErrSelfConversation
	}

	acctA, err := s.resolveAccount(ctx, a)
	if err != nil {
		return nil, err
	}
	acctB, err := s.resolveAccount(ctx, b)
	if err != nil {
		return nil, err
	}

	key := domain.PairKey(a, b)
	conv, err := s.convRepo.GetByPairKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("looking up conversation: %w", err)
	}
	if conv != nil {
		s.refreshSnapshots(ctx, conv, acctA, acctB)
		return conv, nil
	}

	now := time.Now()
	conv = &domain.Conversation{
		ID:           uuid.New(),
		PairKey:      key,
		Participants: []domain.Participant{acctA.Snapshot(), acctB.Snapshot()},
		UnreadCount:  0,
		IsArchived:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.convRepo.Create(ctx, conv)
	if errors.Is(err, repository.ErrDuplicatePair) {
		// Lost the create race; the winner's record is the conversation.
		existing, lookupErr := s.convRepo.GetByPairKey(ctx, key)
		if lookupErr != nil {
			return nil, fmt.Errorf("re-looking up conversation after conflict: %w", lookupErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("conversation vanished after duplicate-create conflict: %w", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	metrics.ConversationsCreated.Inc()
	s.logger.Info().Stringer("conversation_id", conv.ID).Msg("conversation created")
	return conv, nil
}

// List returns the caller's non-archived conversations with at least one
// message, newest activity first.
func (s *ConversationService) List(ctx context.Context, rawPhoneID string) ([]domain.Conversation, error) {
	phoneID, err := s.directory.Canonicalize(rawPhoneID)
	if err != nil {
		return nil, ErrInvalidParticipant
	}

	convs, err := s.convRepo.ListForParticipant(ctx, phoneID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// Get returns a conversation the requester participates in.
func (s *ConversationService) Get(ctx context.Context, id uuid.UUID, rawRequester string) (*domain.Conversation, error) {
	requester, err := s.directory.Canonicalize(rawRequester)
	if err != nil {
		return nil, ErrInvalidParticipant
	}
	conv, err := s.convRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(requester) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// Delete archives (soft) or permanently removes (hard) a conversation. Hard
// delete cascades to every message in the log.
func (s *ConversationService) Delete(ctx context.Context, id uuid.UUID, rawRequester string, hard bool) error {
	conv, err := s.Get(ctx, id, rawRequester)
	if err != nil {
		return err
	}

	if hard {
		if _, err := s.msgRepo.DeleteByConversation(ctx, conv.ID); err != nil {
			return fmt.Errorf("deleting messages: %w", err)
		}
		if err := s.convRepo.Delete(ctx, conv.ID); err != nil {
			return fmt.Errorf("deleting conversation: %w", err)
		}
		metrics.ConversationsDeleted.WithLabelValues("hard").Inc()
	} else {
		if err := s.convRepo.Archive(ctx, conv.ID); err != nil {
			return fmt.Errorf("archiving conversation: %w", err)
		}
		metrics.ConversationsDeleted.WithLabelValues("soft").Inc()
	}

	if s.notifier != nil {
		s.notifier.ConversationDeleted(conv.ID)
	}
	return nil
}

func (s *ConversationService) resolveAccount(ctx context.Context, canonical string) (*domain.Account, error) {
	acct, err := s.directory.Resolve(ctx, canonical)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving account %s: %w", canonical, err)
	}
	return acct, nil
}

// refreshSnapshots opportunistically re-copies participant profile data when
// it drifted from the directory. Staleness between resolves is accepted.
func (s *ConversationService) refreshSnapshots(ctx context.Context, conv *domain.Conversation, accounts ...*domain.Account) {
	changed := false
	fresh := make([]domain.Participant, len(conv.Participants))
	copy(fresh, conv.Participants)

	for _, acct := range accounts {
		for i, p := range fresh {
			if p.PhoneID != acct.PhoneID {
				continue
			}
			snap := acct.Snapshot()
			if p.Name != snap.Name || !equalPtr(p.AvatarURL, snap.AvatarURL) {
				fresh[i] = snap
				changed = true
			}
		}
	}
	if !changed {
		return
	}

	if err := s.convRepo.UpdateParticipants(ctx, conv.ID, fresh); err != nil {
		s.logger.Warn().Err(err).Stringer("conversation_id", conv.ID).Msg("refreshing participant snapshots")
		return
	}
	conv.Participants = fresh
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
