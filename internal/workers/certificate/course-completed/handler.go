// Package coursecompleted receives course-completed notifications and hands
// them to the transfer pipeline, either inline or through the task queue.
package coursecompleted

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ehealth-workers/internal/common/config"
	"ehealth-workers/internal/common/errors"
	"ehealth-workers/internal/common/logger"
	"ehealth-workers/internal/common/metrics"
	"ehealth-workers/internal/common/validation"
	"ehealth-workers/internal/models"
)

const maxBodyBytes = 64 << 10

type Observer struct {
	mode       string
	transferer InlineTransferer
	queue      TaskQueue
	logger     logger.Logger
}

type ObserverOptions struct {
	Mode       string
	Transferer InlineTransferer
	Queue      TaskQueue
	Logger     logger.Logger
}

func NewObserver(opts ObserverOptions) (*Observer, error) {
	switch opts.Mode {
	case config.ModeInline:
		if opts.Transferer == nil {
			return nil, fmt.Errorf("inline mode needs a transferer")
		}
	case config.ModeDeferred:
		if opts.Queue == nil {
			return nil, fmt.Errorf("deferred mode needs a task queue")
		}
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", opts.Mode)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Observer{
		mode:       opts.Mode,
		transferer: opts.Transferer,
		queue:      opts.Queue,
		logger:     log.WithFields(map[string]interface{}{"component": "course-completed-observer"}),
	}, nil
}

// Routes is mounted under /events.
func (o *Observer) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/course-completed", o.handleCourseCompleted)
	return r
}

func (o *Observer) handleCourseCompleted(w http.ResponseWriter, r *http.Request) {
	event, details, err := decodeEvent(r)
	if err != nil {
		o.logger.Warn("Rejected course-completed notification", map[string]interface{}{
			"requestId": middleware.GetReqID(r.Context()),
			"error":     err.Error(),
		})
		writeJSON(w, http.StatusBadRequest, Response{Status: StatusInvalid, Error: err.Error(), Details: details})
		return
	}

	metrics.CompletionEventsReceived.WithLabelValues(o.mode).Inc()
	fields := map[string]interface{}{
		"requestId":    middleware.GetReqID(r.Context()),
		"courseId":     event.CourseID,
		"userId":       event.UserID,
		"completionId": event.CompletionID,
		"mode":         o.mode,
	}
	o.logger.Info("Course completed", fields)

	if o.mode == config.ModeInline {
		output, msg := o.transferer.TransferInline(r.Context(), event)
		if msg != "" {
			writeJSON(w, http.StatusOK, Response{Status: StatusFailed, Error: msg})
			return
		}
		writeJSON(w, http.StatusOK, Response{
			Status:        output.Status,
			TransferLogID: output.LogID,
			Message:       output.Message,
		})
		return
	}

	key, err := o.queue.Enqueue(r.Context(), event)
	if err != nil {
		fields["error"] = err.Error()
		o.logger.Error("Failed to queue certificate transfer", fields)
		status := http.StatusBadGateway
		if errors.AsStandardError(err).Retryable {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, Response{Status: StatusFailed, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, Response{Status: StatusQueued, ProcessInstanceKey: key})
}

func decodeEvent(r *http.Request) (*models.CompletionEvent, []string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read body: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("body is not a JSON object: %w", err)
	}

	if result := validation.ValidateInput(raw, validation.CompletionEventSchema()); !result.Valid {
		return nil, result.GetErrorMessages(), fmt.Errorf("invalid course-completed event")
	}

	var event models.CompletionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, nil, fmt.Errorf("invalid course-completed event: %w", err)
	}
	return &event, nil, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
