package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
)

// LogRepository handles email_logs persistence.
type LogRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository creates an email log repository.
func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

// Create appends an email log row. Callers treat failure as non-fatal.
func (r *LogRepository) Create(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (id, registration_number, email_type, recipient_email, subject, status, provider_message_id, error_message)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, el.RegistrationNumber, el.EmailType, el.RecipientEmail, el.Subject, el.Status, el.ProviderMessageID, el.ErrorMessage).
		Scan(&el.ID, &el.CreatedAt)
}

// ListRecent returns the most recent email logs, newest first.
func (r *LogRepository) ListRecent(ctx context.Context, limit int) ([]*models.EmailLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT id, registration_number, email_type, recipient_email, subject, status, provider_message_id, error_message, created_at
		FROM email_logs
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		if err := rows.Scan(&el.ID, &el.RegistrationNumber, &el.EmailType, &el.RecipientEmail, &el.Subject, &el.Status, &el.ProviderMessageID, &el.ErrorMessage, &el.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
