package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovacev/chatter/internal/domain"
	"github.com/dkovacev/chatter/internal/metrics"
	"github.com/dkovacev/chatter/internal/repository"
)

var (
	ErrEmptyMessage       = errors.New("message text is required")
	ErrInvalidMessageType = errors.New("invalid message type")
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

type MessageService struct {
	msgRepo       repository.MessageRepository
	convRepo      repository.ConversationRepository
	conversations *ConversationService
	directory     Directory
	presence      Presence
	notifier      Notifier
	logger        zerolog.Logger
}

func NewMessageService(
	msgRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	conversations *ConversationService,
	directory Directory,
	logger zerolog.Logger,
) *MessageService {
	return &MessageService{
		msgRepo:       msgRepo,
		convRepo:      convRepo,
		conversations: conversations,
		directory:     directory,
		logger:        logger,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetPresence sets the live-connection registry used for the delivered
// transition (optional dependency).
func (s *MessageService) SetPresence(p Presence) {
	s.presence = p
}

type SendResult struct {
	Message        *domain.Message `json:"message"`
	ConversationID uuid.UUID       `json:"conversation_id"`
}

type Pagination struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalMessages int64 `json:"totalMessages"`
	HasMore       bool  `json:"hasMore"`
}

type MessagePage struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// Send validates the request, resolves the conversation, appends the message
// and updates the conversation summary in lockstep, then fans the change out.
func (s *MessageService) Send(ctx context.Context, rawFrom, rawTo, text string, msgType domain.MessageType) (*SendResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if msgType == "" {
		msgType = domain.TypeText
	}
	if !domain.ValidMessageType(msgType) {
		return nil, ErrInvalidMessageType
	}

	conv, err := s.conversations.Resolve(ctx, rawFrom, rawTo)
	if err != nil {
		return nil, err
	}

	from, err := s.directory.Canonicalize(rawFrom)
	if err != nil {
		return nil, ErrInvalidParticipant
	}
	to, err := s.directory.Canonicalize(rawTo)
	if err != nil {
		return nil, ErrInvalidParticipant
	}

	status := domain.StatusSent
	if s.presence != nil && s.presence.IsOnline(to) {
		status = domain.StatusDelivered
	}

	var senderName string
	if p, ok := conv.ParticipantNamed(from); ok {
		senderName = p.Name
	}

	now := time.Now()
	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		From:           from,
		To:             to,
		Text:           text,
		Type:           msgType,
		Status:         status,
		SenderName:     senderName,
		Timestamp:      now,
		CreatedAt:      now,
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	// Summary update: snapshot replacement and unread increment happen in one
	// atomic row update. The recipient, not the sender, accrues the unread.
	if err := s.convRepo.SetLastMessage(ctx, conv.ID, msg.Snapshot(), true); err != nil {
		return nil, fmt.Errorf("updating conversation summary: %w", err)
	}

	metrics.MessagesSent.Inc()

	if s.notifier != nil {
		s.notifier.MessageCreated(conv.ID, msg)

		updated, err := s.convRepo.GetByID(ctx, conv.ID)
		if err != nil || updated == nil {
			s.logger.Warn().Err(err).Stringer("conversation_id", conv.ID).Msg("fetching conversation for update event")
		} else {
			s.notifier.ConversationUpdated(updated)
		}
	}

	return &SendResult{Message: msg, ConversationID: conv.ID}, nil
}

// History returns one reverse-chronological page of the conversation's log.
func (s *MessageService) History(ctx context.Context, rawRequester string, conversationID uuid.UUID, page, pageSize int) (*MessagePage, error) {
	if _, err := s.conversations.Get(ctx, conversationID, rawRequester); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	messages, total, err := s.msgRepo.ListPage(ctx, conversationID, page, pageSize)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &MessagePage{
		Messages: messages,
		Pagination: Pagination{
			CurrentPage:   page,
			TotalPages:    totalPages,
			TotalMessages: total,
			HasMore:       int64((page-1)*pageSize+len(messages)) < total,
		},
	}, nil
}
