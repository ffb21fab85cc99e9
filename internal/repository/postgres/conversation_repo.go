package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkovacev/chatter/internal/domain"
	"github.com/dkovacev/chatter/internal/repository"
)

const uniqueViolation = "23505"

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	participants, err := json.Marshal(conv.Participants)
	if err != nil {
		return fmt.Errorf("marshaling participants: %w", err)
	}

	query := `
		INSERT INTO conversations (id, pair_key, participants, unread_count, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.pool.Exec(ctx, query,
		conv.ID, conv.PairKey, participants, conv.UnreadCount, conv.IsArchived, conv.CreatedAt, conv.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicatePair
	}
	return err
}

const conversationColumns = `id, pair_key, participants, last_message, unread_count, is_archived, created_at, updated_at`

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (r *ConversationRepo) GetByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE pair_key = $1`, pairKey)
	return scanConversation(row)
}

func (r *ConversationRepo) ListForParticipant(ctx context.Context, phoneID string) ([]domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE is_archived = FALSE
			AND last_message IS NOT NULL
			AND participants @> jsonb_build_array(jsonb_build_object('phone_id', $1::text))
		ORDER BY last_message_at DESC`

	rows, err := r.pool.Query(ctx, query, phoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) SetLastMessage(ctx context.Context, id uuid.UUID, snap domain.LastMessage, incrementUnread bool) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling last message: %w", err)
	}

	inc := 0
	if incrementUnread {
		inc = 1
	}

	query := `
		UPDATE conversations
		SET last_message = $2, last_message_at = $3, unread_count = unread_count + $4, updated_at = now()
		WHERE id = $1`
	_, err = r.pool.Exec(ctx, query, id, data, snap.Timestamp, inc)
	return err
}

func (r *ConversationRepo) ClearUnread(ctx context.Context, id uuid.UUID, markLastRead bool) error {
	query := `
		UPDATE conversations
		SET unread_count = 0,
			last_message = CASE
				WHEN $2::boolean AND last_message IS NOT NULL
				THEN jsonb_set(last_message, '{status}', '"read"')
				ELSE last_message
			END,
			updated_at = now()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, markLastRead)
	return err
}

func (r *ConversationRepo) UpdateParticipants(ctx context.Context, id uuid.UUID, participants []domain.Participant) error {
	data, err := json.Marshal(participants)
	if err != nil {
		return fmt.Errorf("marshaling participants: %w", err)
	}
	_, err = r.pool.Exec(ctx, `UPDATE conversations SET participants = $2, updated_at = now() WHERE id = $1`, id, data)
	return err
}

func (r *ConversationRepo) Archive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE conversations SET is_archived = TRUE, updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *ConversationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var (
		conv         domain.Conversation
		participants []byte
		lastMessage  []byte
	)
	err := row.Scan(
		&conv.ID, &conv.PairKey, &participants, &lastMessage,
		&conv.UnreadCount, &conv.IsArchived, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(participants, &conv.Participants); err != nil {
		return nil, fmt.Errorf("unmarshaling participants: %w", err)
	}
	if lastMessage != nil {
		var snap domain.LastMessage
		if err := json.Unmarshal(lastMessage, &snap); err != nil {
			return nil, fmt.Errorf("unmarshaling last message: %w", err)
		}
		conv.LastMessage = &snap
	}
	return &conv, nil
}
