package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer("91")

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already canonical", "919000000001", "919000000001"},
		{"plus prefix stripped", "+919000000001", "919000000001"},
		{"surrounding whitespace", "  919000000001 ", "919000000001"},
		{"national number gains country code", "9000000001", "919000000001"},
		{"short number gains country code", "911234", "911234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSameNumberDifferentSpellings(t *testing.T) {
	n := NewNormalizer("91")

	canonical, err := n.Normalize("919000000001")
	require.NoError(t, err)

	for _, raw := range []string{"+919000000001", "9000000001", " 919000000001"} {
		got, err := n.Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, canonical, got)
	}
}

func TestNormalizeRejectsInvalidInput(t *testing.T) {
	n := NewNormalizer("91")

	for _, raw := range []string{
		"",
		"   ",
		"+",
		"abc",
		"90 000",
		"(91) 9000000001",
		"9000-000-001",
		"123",
		"9190000000011234567",
	} {
		_, err := n.Normalize(raw)
		assert.ErrorIs(t, err, ErrInvalid, "raw: %q", raw)
	}
}
