package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dkovacev/chatter/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeJoin        = "conversation:join"
	EventTypeLeave       = "conversation:leave"
	EventTypeTypingStart = "typing:start"
	EventTypeTypingStop  = "typing:stop"
	EventTypePing        = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessageCreated      = "message:created"
	EventTypeConversationUpdated = "conversation:updated"
	EventTypeMessagesRead        = "messages:marked-as-read"
	EventTypeConversationDeleted = "conversation:deleted"
	EventTypeTyping              = "typing"
	EventTypePresence            = "presence"
	EventTypePong                = "pong"
	EventTypeError               = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type           string          `json:"type"`
	ConversationID *uuid.UUID      `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ConversationRef struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

// --- Server → Client payloads ---

type MessageCreatedPayload struct {
	Message        domain.Message `json:"message"`
	ConversationID uuid.UUID      `json:"conversation_id"`
}

type ConversationPayload struct {
	Conversation domain.Conversation `json:"conversation"`
}

type MessagesReadPayload struct {
	ConversationID uuid.UUID           `json:"conversation_id"`
	ReaderID       string              `json:"reader_id"`
	UpdatedCount   int64               `json:"updated_count"`
	Conversation   domain.Conversation `json:"conversation"`
}

type ConversationDeletedPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type TypingPayload struct {
	PhoneID string `json:"phone_id"`
	Name    string `json:"name"`
}

type PresencePayload struct {
	PhoneID string `json:"phone_id"`
	Status  string `json:"status"` // "online" | "offline"
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, conversationID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        data,
		Timestamp:      time.Now().Unix(),
	}, nil
}
