// Package identity resolves user-facing identifiers to account records and
// owns the canonicalization rule used everywhere a phone identifier enters
// the system.
package identity

import (
	"context"
	"errors"

	"github.com/dkovacev/chatter/internal/domain"
	"github.com/dkovacev/chatter/internal/repository"
	"github.com/dkovacev/chatter/pkg/phone"
)

var ErrNotFound = errors.New("account not found")

type Directory struct {
	accounts   repository.AccountRepository
	normalizer *phone.Normalizer
}

func NewDirectory(accounts repository.AccountRepository, normalizer *phone.Normalizer) *Directory {
	return &Directory{accounts: accounts, normalizer: normalizer}
}

// Canonicalize returns the canonical form of a raw identifier.
func (d *Directory) Canonicalize(identifier string) (string, error) {
	return d.normalizer.Normalize(identifier)
}

// Resolve canonicalizes the identifier and looks up the account.
// Returns ErrNotFound when no account holds the identifier.
func (d *Directory) Resolve(ctx context.Context, identifier string) (*domain.Account, error) {
	id, err := d.Canonicalize(identifier)
	if err != nil {
		return nil, err
	}
	acct, err := d.accounts.GetByPhoneID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrNotFound
	}
	return acct, nil
}
