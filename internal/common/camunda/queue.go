package camunda

import (
	"context"

	"ehealth-workers/internal/models"
)

// ProcessStarter is implemented by Client.
type ProcessStarter interface {
	StartProcess(ctx context.Context, bpmnProcessID string, variables interface{}) (int64, error)
}

// TaskQueue defers a transfer by starting one process instance per completion.
// The process's service task is picked up by the certificate.transfer worker.
type TaskQueue struct {
	starter   ProcessStarter
	processID string
}

func NewTaskQueue(starter ProcessStarter, processID string) *TaskQueue {
	return &TaskQueue{starter: starter, processID: processID}
}

// Enqueue returns the key of the created process instance.
func (q *TaskQueue) Enqueue(ctx context.Context, event *models.CompletionEvent) (int64, error) {
	return q.starter.StartProcess(ctx, q.processID, event)
}
