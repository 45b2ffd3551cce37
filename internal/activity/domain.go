package activity

import "time"

// Entry is one recorded request. UserID is nil for anonymous traffic.
type Entry struct {
	ID            int64      `json:"id"`
	UserID        *int64     `json:"user_id,omitempty"`
	Method        string     `json:"method"`
	Path          string     `json:"path"`
	StatusCode    int        `json:"status_code"`
	IPAddress     *string    `json:"ip_address,omitempty"`
	UserAgent     *string    `json:"user_agent,omitempty"`
	ClientContext *string    `json:"client_context,omitempty"`
	RequestTime   time.Time  `json:"request_time"`
}
