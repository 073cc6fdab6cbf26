package model

import "time"

// Notice tells a user that a task was assigned to them. Notices are queued
// in the same transaction as the assignment and delivered asynchronously.
type Notice struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	TaskID string `json:"task_id" db:"task_id"`

	// Message is the human-readable notice text.
	Message string `json:"message" db:"message"`

	// Delivered is set once the notice has been handed to the mail outbox.
	Delivered bool `json:"delivered" db:"delivered"`

	// Read is set once the user has seen the notice in a client.
	Read bool `json:"read" db:"is_read"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
