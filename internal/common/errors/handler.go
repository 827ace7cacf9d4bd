// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports a failed job back to the broker.
type ErrorHandler struct {
	logger Logger
	// maxRetries replaces the per-code retry count of retryable failures when set.
	maxRetries int
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger, maxRetries int) *ErrorHandler {
	return &ErrorHandler{logger: logger, maxRetries: maxRetries}
}

// HandleJobError fails the job with retries for retryable codes and throws a
// BPMN error for everything else. The broker owns the retry schedule.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := AsStandardError(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	if h.maxRetries > 0 && bpmnErr.Retries > 0 {
		bpmnErr.Retries = h.maxRetries
	}

	h.logError(job, stdErr, bpmnErr)

	if bpmnErr.Retries > 0 && job.Retries > 0 {
		h.failJobWithRetries(ctx, client, job, bpmnErr)
		return
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	// job.Retries counts what is left, so never hand back more than that.
	retries := int32(bpmnErr.Retries)
	if job.Retries-1 < retries {
		retries = job.Retries - 1
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(fmt.Sprintf("[%s] %s: %s", bpmnErr.Code, bpmnErr.Message, bpmnErr.Details))

	withVars, err := cmd.VariablesFromString(errorVariablesJSON(bpmnErr))
	if err != nil {
		if _, sendErr := cmd.Send(ctx); sendErr != nil {
			h.logger.Error("failed to send fail job command", map[string]interface{}{
				"jobKey": job.Key,
				"error":  sendErr.Error(),
			})
		}
		return
	}
	if _, err := withVars.Send(ctx); err != nil {
		h.logger.Error("failed to send fail job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(fmt.Sprintf("%s: %s", bpmnErr.Message, bpmnErr.Details))

	withVars, err := cmd.VariablesFromString(errorVariablesJSON(bpmnErr))
	if err != nil {
		if _, sendErr := cmd.Send(ctx); sendErr != nil {
			h.logger.Error("failed to throw error", map[string]interface{}{
				"jobKey": job.Key,
				"error":  sendErr.Error(),
			})
		}
		return
	}
	if _, err := withVars.Send(ctx); err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          bpmnErr.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}

func errorVariablesJSON(bpmnErr *BPMNError) string {
	data, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "{}"
	}
	return string(data)
}
