package service

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeAccountRepo, *fakeDirectory) {
	t.Helper()
	accountRepo := newFakeAccountRepo()
	directory := newFakeDirectory()
	return NewAuthService(accountRepo, directory, "test-secret"), accountRepo, directory
}

func TestRegisterCreatesAccountWithCanonicalPhoneID(t *testing.T) {
	svc, accountRepo, _ := newAuthFixture(t)

	resp, err := svc.Register(context.Background(), RegisterInput{
		PhoneID:  "+919000000001",
		Name:     "Alice",
		Password: "passw0rd",
	})
	require.NoError(t, err)

	assert.Equal(t, "919000000001", resp.Account.PhoneID)
	assert.Equal(t, "Alice", resp.Account.Name)
	assert.NotEmpty(t, resp.AccessToken)

	stored, err := accountRepo.GetByPhoneID(context.Background(), "919000000001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "passw0rd", stored.PasswordHash)
}

func TestRegisterRejectsDuplicatePhoneID(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	input := RegisterInput{PhoneID: "9000000001", Name: "Alice", Password: "passw0rd"}
	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	// Same number written differently still collides.
	_, err = svc.Register(context.Background(), RegisterInput{
		PhoneID:  "+919000000001",
		Name:     "Imposter",
		Password: "passw0rd",
	})
	assert.ErrorIs(t, err, ErrPhoneTaken)
}

func TestRegisterRejectsInvalidPhoneID(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		PhoneID:  "not a phone",
		Name:     "Alice",
		Password: "passw0rd",
	})
	assert.ErrorIs(t, err, ErrInvalidParticipant)
}

func TestLoginVerifiesPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		PhoneID:  "9000000001",
		Name:     "Alice",
		Password: "passw0rd",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginInput{PhoneID: "9000000001", Password: "passw0rd"})
	require.NoError(t, err)
	assert.Equal(t, "919000000001", resp.Account.PhoneID)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Login(context.Background(), LoginInput{PhoneID: "9000000001", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCreds)

	_, err = svc.Login(context.Background(), LoginInput{PhoneID: "9099999999", Password: "passw0rd"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestTokenCarriesIdentityClaims(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	resp, err := svc.Register(context.Background(), RegisterInput{
		PhoneID:  "9000000001",
		Name:     "Alice",
		Password: "passw0rd",
	})
	require.NoError(t, err)

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, resp.Account.ID.String(), claims["sub"])
	assert.Equal(t, "919000000001", claims["pid"])
	assert.Equal(t, "Alice", claims["name"])
}
