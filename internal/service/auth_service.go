package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/dkovacev/chatter/internal/domain"
	"github.com/dkovacev/chatter/internal/repository"
)

var (
	ErrPhoneTaken   = errors.New("phone number already registered")
	ErrInvalidCreds = errors.New("invalid phone number or password")
)

const defaultAbout = "Hey there! I am using chatter."

type AuthService struct {
	accountRepo repository.AccountRepository
	directory   Directory
	jwtSecret   []byte
}

func NewAuthService(accountRepo repository.AccountRepository, directory Directory, jwtSecret string) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		directory:   directory,
		jwtSecret:   []byte(jwtSecret),
	}
}

type RegisterInput struct {
	PhoneID  string `json:"phone_id"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginInput struct {
	PhoneID  string `json:"phone_id"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Account     *domain.Account `json:"account"`
	AccessToken string          `json:"access_token"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	phoneID, err := s.directory.Canonicalize(input.PhoneID)
	if err != nil {
		return nil, ErrInvalidParticipant
	}

	existing, err := s.accountRepo.GetByPhoneID(ctx, phoneID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPhoneTaken
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "User " + phoneID
	}

	now := time.Now()
	account := &domain.Account{
		ID:           uuid.New(),
		PhoneID:      phoneID,
		Name:         name,
		About:        defaultAbout,
		PasswordHash: hash,
		LastSeen:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &AuthResponse{Account: account, AccessToken: token}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	phoneID, err := s.directory.Canonicalize(input.PhoneID)
	if err != nil {
		return nil, ErrInvalidCreds
	}

	account, err := s.accountRepo.GetByPhoneID(ctx, phoneID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCreds
	}

	if !verifyPassword(input.Password, account.PasswordHash) {
		return nil, ErrInvalidCreds
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &AuthResponse{Account: account, AccessToken: token}, nil
}

func (s *AuthService) generateToken(account *domain.Account) (string, error) {
	claims := jwt.MapClaims{
		"sub":  account.ID.String(),
		"pid":  account.PhoneID,
		"name": account.Name,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	return fmt.Sprintf("%s:%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encoded string) bool {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}
