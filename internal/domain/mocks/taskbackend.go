package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// TaskBackend is a mock implementation of ports.TaskBackend recording
// every submitted task.
type TaskBackend struct {
	Err error

	mu    sync.Mutex
	tasks []ports.Task
}

// SubmitTask implements ports.TaskBackend.
func (m *TaskBackend) SubmitTask(ctx context.Context, task ports.Task) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

// Tasks returns the tasks submitted so far.
func (m *TaskBackend) Tasks() []ports.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Task(nil), m.tasks...)
}
