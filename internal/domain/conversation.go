package domain

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a denormalized snapshot of an account, copied into the
// conversation at creation time. It is a cache, not a live reference.
type Participant struct {
	PhoneID   string  `json:"phone_id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// LastMessage caches the newest message of a conversation so the list view
// never has to scan the message log.
type LastMessage struct {
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
	From      string        `json:"from"`
	Status    MessageStatus `json:"status"`
}

// Conversation is the durable record of a two-party chat thread. Exactly one
// non-deleted conversation exists per unordered participant pair; the pair key
// backs that invariant with a unique index at the storage layer.
type Conversation struct {
	ID           uuid.UUID     `json:"id"`
	PairKey      string        `json:"-"`
	Participants []Participant `json:"participants"`
	LastMessage  *LastMessage  `json:"last_message,omitempty"`
	UnreadCount  int           `json:"unread_count"`
	IsArchived   bool          `json:"is_archived"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PairKey builds the order-normalized key for two canonical identifiers.
// PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// HasParticipant reports whether the given canonical identifier belongs to
// this conversation.
func (c *Conversation) HasParticipant(phoneID string) bool {
	for _, p := range c.Participants {
		if p.PhoneID == phoneID {
			return true
		}
	}
	return false
}

// Counterpart returns the participant snapshot of the other party.
func (c *Conversation) Counterpart(phoneID string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.PhoneID != phoneID {
			return p, true
		}
	}
	return Participant{}, false
}

// ParticipantNamed returns the snapshot for the given identifier.
func (c *Conversation) ParticipantNamed(phoneID string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.PhoneID == phoneID {
			return p, true
		}
	}
	return Participant{}, false
}
