package coursecompleted

import (
	"context"

	"ehealth-workers/internal/models"
	transfercertificate "ehealth-workers/internal/workers/certificate/transfer-certificate"
)

// InlineTransferer runs the transfer inside the request.
type InlineTransferer interface {
	TransferInline(ctx context.Context, input *models.CompletionEvent) (*transfercertificate.Output, string)
}

// TaskQueue defers the transfer to the job worker.
type TaskQueue interface {
	Enqueue(ctx context.Context, event *models.CompletionEvent) (int64, error)
}

type Response struct {
	Status             string   `json:"status"`
	TransferLogID      int64    `json:"transferLogId,omitempty"`
	ProcessInstanceKey int64    `json:"processInstanceKey,omitempty"`
	Message            string   `json:"message,omitempty"`
	Error              string   `json:"error,omitempty"`
	Details            []string `json:"details,omitempty"`
}

const (
	StatusQueued  = "queued"
	StatusFailed  = "failed"
	StatusInvalid = "invalid"
)
