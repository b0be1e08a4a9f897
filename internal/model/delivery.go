// internal/model/delivery.go
package model

import "time"

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// DeliveryResult records one send attempt. Results are append-only: once a
// contact's attempt is recorded it is never mutated.
type DeliveryResult struct {
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Status    string    `db:"status" json:"status"` // sent, failed
	Error     string    `db:"last_error,omitempty" json:"error,omitempty"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// Summary is the terminal outcome of one delivery run.
type Summary struct {
	Total   int              `json:"total"`
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Details []DeliveryResult `json:"details"`
}
