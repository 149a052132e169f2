// Package registry is the record store for dog registrations and their
// single-use update tokens.
package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
)

// ErrNotFound indicates the referenced registration or token does not exist.
var ErrNotFound = errors.New("registry: not found")

// Repository handles registration and update token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registry repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const registrationColumns = `id, registration_number, dog_name, breed, color, description,
	owner_name, owner_email, status, checkout_session_id, stripe_customer_id, payment_intent_id,
	certificate_key, created_at, updated_at`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.ID, &reg.RegistrationNumber, &reg.DogName, &reg.Breed, &reg.Color, &reg.Description,
		&reg.OwnerName, &reg.OwnerEmail, &reg.Status, &reg.CheckoutSessionID, &reg.StripeCustomerID, &reg.PaymentIntentID,
		&reg.CertificateKey, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// Create inserts a pending registration. The registration number is assigned
// by the database sequence (WCU-NNNNN, zero-padded) at creation, not at
// payment time.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (id, registration_number, dog_name, breed, color, description, owner_name, owner_email)
		VALUES (gen_random_uuid(), 'WCU-' || lpad(nextval('registration_numbers')::text, 5, '0'), $1, $2, $3, $4, $5, $6)
		RETURNING id, registration_number, status, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, reg.DogName, reg.Breed, reg.Color, reg.Description, reg.OwnerName, reg.OwnerEmail).
		Scan(&reg.ID, &reg.RegistrationNumber, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
}

// GetByNumber returns a registration by its registration number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*models.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE registration_number = $1`
	return scanRegistration(r.pool.QueryRow(ctx, q, number))
}

// SetCheckoutSession stores the checkout session reference on a registration.
func (r *Repository) SetCheckoutSession(ctx context.Context, number, sessionID string) error {
	const q = `UPDATE registrations SET checkout_session_id = $2, updated_at = NOW() WHERE registration_number = $1`
	tag, err := r.pool.Exec(ctx, q, number, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete performs the guarded pending -> completed transition, storing the
// certificate reference and payment fields. Returns false when the row was
// not pending, so concurrent deliveries of the same payment event cannot
// both claim completion (a read-then-write check would race here).
func (r *Repository) Complete(ctx context.Context, number, certificateKey, customerID, paymentIntentID string) (bool, error) {
	const q = `UPDATE registrations
		SET status = $2, certificate_key = $3, stripe_customer_id = $4, payment_intent_id = $5, updated_at = NOW()
		WHERE registration_number = $1 AND status = $6`
	tag, err := r.pool.Exec(ctx, q, number, models.RegistrationStatusCompleted, certificateKey, customerID, paymentIntentID, models.RegistrationStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyUpdate writes the owner-editable fields of a registration.
func (r *Repository) ApplyUpdate(ctx context.Context, id uuid.UUID, ownerName, ownerEmail, breed, color, description string) error {
	const q = `UPDATE registrations
		SET owner_name = $2, owner_email = $3, breed = $4, color = $5, description = $6, updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, ownerName, ownerEmail, breed, color, description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateUpdateToken inserts a single-use update token.
func (r *Repository) CreateUpdateToken(ctx context.Context, t *models.UpdateToken) error {
	const q = `INSERT INTO update_tokens (id, registration_id, token, expires_at)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, used_at, created_at`
	return r.pool.QueryRow(ctx, q, t.RegistrationID, t.Token, t.ExpiresAt).
		Scan(&t.ID, &t.UsedAt, &t.CreatedAt)
}

// GetUpdateToken returns a token by its string.
func (r *Repository) GetUpdateToken(ctx context.Context, tokenStr string) (*models.UpdateToken, error) {
	const q = `SELECT id, registration_id, token, expires_at, used_at, created_at FROM update_tokens WHERE token = $1`
	var t models.UpdateToken
	err := r.pool.QueryRow(ctx, q, tokenStr).Scan(&t.ID, &t.RegistrationID, &t.Token, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// MarkTokenUsed consumes a token. Returns false when it was already used
// (guarded update, same shape as Complete).
func (r *Repository) MarkTokenUsed(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	const q = `UPDATE update_tokens SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, tokenID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID returns a registration by its row ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return scanRegistration(r.pool.QueryRow(ctx, q, id))
}
