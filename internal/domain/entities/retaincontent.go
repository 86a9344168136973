package entities

import "time"

// RetainContent is one immutable input item to retain_batch, built by the
// orchestrator in step 2 of its sequence: event_date defaults to the
// current UTC instant when the caller omits it.
type RetainContent struct {
	Content   string
	Context   string
	EventDate time.Time
	Metadata  map[string]string
}
