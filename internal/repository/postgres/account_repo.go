package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkovacev/chatter/internal/domain"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, phone_id, name, avatar_url, about, password_hash, is_online, last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		account.ID, account.PhoneID, account.Name, account.AvatarURL, account.About,
		account.PasswordHash, account.IsOnline, account.LastSeen, account.CreatedAt, account.UpdatedAt,
	)
	return err
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *AccountRepo) GetByPhoneID(ctx context.Context, phoneID string) (*domain.Account, error) {
	return r.get(ctx, `WHERE phone_id = $1`, phoneID)
}

func (r *AccountRepo) get(ctx context.Context, where string, arg any) (*domain.Account, error) {
	query := `
		SELECT id, phone_id, name, avatar_url, about, password_hash, is_online, last_seen, created_at, updated_at
		FROM accounts ` + where
	var acct domain.Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&acct.ID, &acct.PhoneID, &acct.Name, &acct.AvatarURL, &acct.About,
		&acct.PasswordHash, &acct.IsOnline, &acct.LastSeen, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *AccountRepo) SetPresence(ctx context.Context, phoneID string, online bool, lastSeen time.Time) error {
	query := `UPDATE accounts SET is_online = $2, last_seen = $3, updated_at = now() WHERE phone_id = $1`
	_, err := r.pool.Exec(ctx, query, phoneID, online, lastSeen)
	return err
}
