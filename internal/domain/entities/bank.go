// Package entities defines the domain types shared across the retain and
// recall pipelines.
package entities

import "time"

// Bank is an isolation namespace for a single agent or user-agent pair. All
// facts, entities, chunks, and links are scoped to exactly one bank; links
// never cross banks.
type Bank struct {
	ID          string
	Name        string
	Description string
	Background  string
	CreatedAt   time.Time
}
