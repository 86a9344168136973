package entities

import "time"

// Document groups facts produced from the same logical source within a bank.
// A document is created on the first batch that references it; later
// batches either append to it or, when is_first_batch is true again, replace
// its content and cascade-delete its prior chunks and facts.
type Document struct {
	ID        string
	BankID    string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
