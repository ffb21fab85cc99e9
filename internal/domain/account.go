package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered user addressed by a canonical phone-style
// identifier. The identifier is immutable once created; profile fields are not.
type Account struct {
	ID           uuid.UUID `json:"id"`
	PhoneID      string    `json:"phone_id"`
	Name         string    `json:"name"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	About        string    `json:"about"`
	PasswordHash string    `json:"-"`
	IsOnline     bool      `json:"is_online"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot returns the denormalized participant copy embedded in conversations.
func (a *Account) Snapshot() Participant {
	return Participant{
		PhoneID:   a.PhoneID,
		Name:      a.Name,
		AvatarURL: a.AvatarURL,
	}
}
