package ports

import "context"

// Task is one unit of post-commit background work. Type names mirror the
// two kinds the orchestrator emits; payload shape depends on Type.
type Task struct {
	Type string
	// BankID scopes the task to the bank it was produced for.
	BankID string
	// Payload carries type-specific data (created unit ids/texts/entity
	// names for "reinforce_opinion"; entity ids and a threshold for
	// "regenerate_observations"). Kept as `any` because the core never
	// inspects it - only backends that implement the named task types do.
	Payload map[string]any
}

const (
	TaskReinforceOpinion       = "reinforce_opinion"
	TaskRegenerateObservations = "regenerate_observations"
)

// TaskBackend accepts post-commit background work. Delivery is
// at-least-once; tasks run outside the retain transaction and never block
// retain's return value. No ordering guarantee across task types.
type TaskBackend interface {
	SubmitTask(ctx context.Context, task Task) error
}
