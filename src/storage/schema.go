package storage

import "time"

// StudioState is one row of studio_state: the client-side view state of a
// workspace between commands.
type StudioState struct {
	Workspace string          `json:"workspace" db:"workspace"`
	Prompt    string          `json:"prompt" db:"prompt"`
	Selection JSONStringArray `json:"selection" db:"selection"`
	Slots     JSONSlots       `json:"slots" db:"slots"`
	Restored  JSONMessages    `json:"restored" db:"restored"`
	BatchID   string          `json:"batch_id" db:"batch_id"`
	Elapsed   int             `json:"elapsed" db:"elapsed"`
	Error     string          `json:"error" db:"error"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
