package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus lifecycle. Transitions are strictly pending -> completed;
// a completed registration is never reverted.
const (
	RegistrationStatusPending   = "pending"
	RegistrationStatusCompleted = "completed"
)

// Registration is a dog registry record. The registration number is the
// human-readable business key (WCU-NNNNN), assigned by the database at
// creation time, before any payment happens.
type Registration struct {
	ID                 uuid.UUID `json:"id"`
	RegistrationNumber string    `json:"registration_number"`
	DogName            string    `json:"dog_name"`
	Breed              string    `json:"breed,omitempty"`
	Color              string    `json:"color,omitempty"`
	Description        string    `json:"description,omitempty"`
	OwnerName          string    `json:"owner_name"`
	OwnerEmail         string    `json:"owner_email"`
	Status             string    `json:"status"`
	CheckoutSessionID  string    `json:"-"`
	StripeCustomerID   string    `json:"-"`
	PaymentIntentID    string    `json:"-"`
	CertificateKey     *string   `json:"certificate_key,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UpdateToken is a single-use credential emailed to an owner so they can
// submit profile updates for one registration. Expires 24h after issuance.
type UpdateToken struct {
	ID             uuid.UUID  `json:"id"`
	RegistrationID uuid.UUID  `json:"registration_id"`
	Token          string     `json:"token"`
	ExpiresAt      time.Time  `json:"expires_at"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
