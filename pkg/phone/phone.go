// Package phone canonicalizes user-facing phone identifiers so the same
// number is never represented by two distinct strings.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalid = errors.New("invalid phone identifier")

var digitsRe = regexp.MustCompile(`^[0-9]+$`)

const (
	minDigits = 6
	maxDigits = 15
)

// Normalizer applies one canonicalization rule: trim, strip a leading "+",
// validate digits, and prepend the configured country code when absent.
type Normalizer struct {
	countryCode string
}

func NewNormalizer(countryCode string) *Normalizer {
	return &Normalizer{countryCode: countryCode}
}

// Normalize returns the canonical form of raw, or ErrInvalid.
func (n *Normalizer) Normalize(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "+")
	if id == "" {
		return "", ErrInvalid
	}
	if !digitsRe.MatchString(id) {
		return "", ErrInvalid
	}
	if !strings.HasPrefix(id, n.countryCode) {
		id = n.countryCode + id
	}
	if len(id) < minDigits || len(id) > maxDigits {
		return "", ErrInvalid
	}
	return id, nil
}
