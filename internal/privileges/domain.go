package privileges

import "time"

// Privilege identifies a guarded capability as a (resource, action) pair,
// unique together among non-deleted rows.
type Privilege struct {
	ID          int64      `json:"id"`
	Resource    string     `json:"resource"`
	Action      string     `json:"action"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
