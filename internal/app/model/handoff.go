package model

import "time"

// Handoff is a one-shot prompt left by one client (typically voice input)
// for another to pick up.
type Handoff struct {
	UserID    string    `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the slot should no longer be delivered.
func (h *Handoff) Expired(now time.Time) bool {
	return !h.ExpiresAt.IsZero() && !now.Before(h.ExpiresAt)
}

type PutHandoffRequest struct {
	Prompt string `json:"prompt" binding:"required,max=4000"`
	Source string `json:"source" binding:"omitempty,max=64"`
}
