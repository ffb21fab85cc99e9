package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus is the delivery state of a message. It only ever advances
// along sent → delivered → read; "failed" is terminal.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

var statusRank = map[MessageStatus]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// CanAdvanceTo reports whether moving from s to next keeps the status a
// forward subsequence of sent, delivered, read.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeDocument MessageType = "document"
	TypeAudio    MessageType = "audio"
	TypeVideo    MessageType = "video"
)

// ValidMessageType reports whether t is one of the accepted message types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case TypeText, TypeImage, TypeDocument, TypeAudio, TypeVideo:
		return true
	}
	return false
}

// Message is one durable unit of conversation content. Immutable after
// creation except for its status; deleted only via conversation hard-delete.
type Message struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	From           string        `json:"from"`
	To             string        `json:"to"`
	Text           string        `json:"text"`
	Type           MessageType   `json:"type"`
	Status         MessageStatus `json:"status"`
	SenderName     string        `json:"sender_name,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Snapshot returns the denormalized copy stored on the owning conversation.
func (m *Message) Snapshot() LastMessage {
	return LastMessage{
		Text:      m.Text,
		Timestamp: m.Timestamp,
		From:      m.From,
		Status:    m.Status,
	}
}
