package ws

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovacev/chatter/internal/domain"
	"github.com/dkovacev/chatter/internal/metrics"
)

// HubNotifier implements service.Notifier on top of a Publisher. Events for
// the same conversation leave in the order the services call in, which is the
// order the underlying writes committed.
type HubNotifier struct {
	publisher Publisher
	logger    zerolog.Logger
}

func NewHubNotifier(publisher Publisher, logger zerolog.Logger) *HubNotifier {
	return &HubNotifier{publisher: publisher, logger: logger}
}

func (n *HubNotifier) MessageCreated(conversationID uuid.UUID, msg *domain.Message) {
	n.publish(EventTypeMessageCreated, &conversationID, MessageCreatedPayload{
		Message:        *msg,
		ConversationID: conversationID,
	})
}

func (n *HubNotifier) ConversationUpdated(conv *domain.Conversation) {
	n.publish(EventTypeConversationUpdated, &conv.ID, ConversationPayload{Conversation: *conv})
}

func (n *HubNotifier) MessagesRead(conv *domain.Conversation, readerID string, updated int64) {
	n.publish(EventTypeMessagesRead, &conv.ID, MessagesReadPayload{
		ConversationID: conv.ID,
		ReaderID:       readerID,
		UpdatedCount:   updated,
		Conversation:   *conv,
	})
}

func (n *HubNotifier) ConversationDeleted(conversationID uuid.UUID) {
	n.publish(EventTypeConversationDeleted, &conversationID, ConversationDeletedPayload{
		ConversationID: conversationID,
	})
}

// publish marshals and hands off. Failures are logged, never propagated: the
// write already committed and disconnected clients re-fetch on reconnect.
func (n *HubNotifier) publish(eventType string, conversationID *uuid.UUID, payload any) {
	evt, err := NewEvent(eventType, conversationID, payload)
	if err != nil {
		n.logger.Warn().Err(err).Str("event", eventType).Msg("ws notifier: marshal error")
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		n.logger.Warn().Err(err).Str("event", eventType).Msg("ws notifier: marshal error")
		return
	}
	metrics.EventsPublished.WithLabelValues(eventType).Inc()
	n.publisher.Publish(conversationID, data)
}
