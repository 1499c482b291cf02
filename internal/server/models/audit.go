package models

import "time"

// Outcome classifies one authentication attempt in the audit log.
type Outcome string

const (
	OutcomeReal    Outcome = "real"
	OutcomeHoney   Outcome = "honey"
	OutcomeInvalid Outcome = "invalid"
)

// AuditEvent is an append-only record of one authentication attempt.
// UserID is empty when the submitted username did not resolve to a user.
type AuditEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	UserName  string    `json:"username"`
	Outcome   Outcome   `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
