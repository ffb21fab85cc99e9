package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkovacev/chatter/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, from_id, to_id, body, type, status, sender_name, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.From, msg.To, msg.Text, msg.Type,
		msg.Status, msg.SenderName, msg.Timestamp, msg.CreatedAt,
	)
	return err
}

const messageColumns = `id, conversation_id, from_id, to_id, body, type, status, sender_name, sent_at, created_at`

func (r *MessageRepo) ListPage(ctx context.Context, conversationID uuid.UUID, page, pageSize int) ([]domain.Message, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE conversation_id = $1`, conversationID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, conversationID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := scanMessage(rows, &msg); err != nil {
			return nil, 0, err
		}
		messages = append(messages, msg)
	}
	return messages, total, rows.Err()
}

func (r *MessageRepo) Newest(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at DESC
		LIMIT 1`
	var msg domain.Message
	err := scanMessage(r.pool.QueryRow(ctx, query, conversationID), &msg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, conversationID uuid.UUID, recipient string) (int64, error) {
	// Forward-only: rows already read (or failed) are never touched.
	query := `
		UPDATE messages
		SET status = 'read'
		WHERE conversation_id = $1 AND to_id = $2 AND status IN ('sent', 'delivered')`
	ct, err := r.pool.Exec(ctx, query, conversationID, recipient)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *MessageRepo) DeleteByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func scanMessage(row rowScanner, msg *domain.Message) error {
	return row.Scan(
		&msg.ID, &msg.ConversationID, &msg.From, &msg.To, &msg.Text, &msg.Type,
		&msg.Status, &msg.SenderName, &msg.Timestamp, &msg.CreatedAt,
	)
}
