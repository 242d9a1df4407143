package models

import "time"

// CatalogUpdatedEvent is published when cached catalog data must be dropped.
type CatalogUpdatedEvent struct {
	Reason      string    `json:"reason"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}
