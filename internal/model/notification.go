package model

import "time"

// Notification is a transient toast for the operator UI.
type Notification struct {
	ID            string    `json:"id"             db:"id"`
	Title         string    `json:"title"          db:"title"`
	Description   string    `json:"description"    db:"description"`
	Duration      int       `json:"duration"       db:"duration_ms"` // milliseconds
	ApplicationID string    `json:"application_id" db:"application_id"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
}
