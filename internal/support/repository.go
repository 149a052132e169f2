package support

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
)

// ErrNotFound indicates the referenced support message does not exist.
var ErrNotFound = errors.New("support: message not found")

// Repository handles support message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a support repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a support message.
func (r *Repository) Create(ctx context.Context, m *models.SupportMessage) error {
	const q = `INSERT INTO support_messages (id, provider_email_id, from_address, from_name, subject, body_text, body_html, registration_number, status, raw_payload)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.ProviderEmailID, m.FromAddress, m.FromName, m.Subject, m.BodyText, m.BodyHTML, m.RegistrationNumber, m.Status, m.RawPayload).
		Scan(&m.ID, &m.CreatedAt)
}

const messageColumns = `id, provider_email_id, from_address, from_name, subject, body_text, body_html,
	registration_number, status, raw_payload, replied_at, created_at`

func scanMessage(row pgx.Row) (*models.SupportMessage, error) {
	var m models.SupportMessage
	err := row.Scan(&m.ID, &m.ProviderEmailID, &m.FromAddress, &m.FromName, &m.Subject, &m.BodyText, &m.BodyHTML,
		&m.RegistrationNumber, &m.Status, &m.RawPayload, &m.RepliedAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByID returns a support message.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SupportMessage, error) {
	const q = `SELECT ` + messageColumns + ` FROM support_messages WHERE id = $1`
	return scanMessage(r.pool.QueryRow(ctx, q, id))
}

// List returns messages newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status string, limit int) ([]*models.SupportMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT ` + messageColumns + ` FROM support_messages`
	args := []any{limit}
	if status != "" {
		q += ` WHERE status = $2`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SupportMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// MarkReplied transitions unread -> replied. Returns false when the message
// was already replied to.
func (r *Repository) MarkReplied(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE support_messages SET status = $2, replied_at = NOW() WHERE id = $1 AND status = $3`
	tag, err := r.pool.Exec(ctx, q, id, models.SupportMessageStatusReplied, models.SupportMessageStatusUnread)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
