package models

import "time"

// RequestAudit is one stored upstream request outcome.
type RequestAudit struct {
	ID         int64     `json:"id"`
	Endpoint   string    `json:"endpoint"`
	Status     int       `json:"status"`
	Success    bool      `json:"success"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CacheHit   bool      `json:"cache_hit"`
	CreatedAt  time.Time `json:"created_at"`
}
