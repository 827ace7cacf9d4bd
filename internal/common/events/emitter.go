// Package events delivers certificate_transferred notifications to subscribers.
package events

import (
	"context"
	"errors"

	"ehealth-workers/internal/common/logger"
	"ehealth-workers/internal/models"
)

// Emitter delivers a notification. Emitting happens after the transfer log row
// is committed, so callers treat a failure as something to log.
type Emitter interface {
	Emit(ctx context.Context, event *models.CertificateTransferredEvent) error
}

// MultiEmitter fans an event out to every emitter and joins their errors.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ctx context.Context, event *models.CertificateTransferredEvent) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogEmitter writes the event to the structured log only.
type LogEmitter struct {
	logger logger.Logger
}

func NewLogEmitter(log logger.Logger) *LogEmitter {
	return &LogEmitter{logger: log}
}

func (e *LogEmitter) Emit(_ context.Context, event *models.CertificateTransferredEvent) error {
	e.logger.Info("Certificate transferred", map[string]interface{}{
		"eventName":     event.EventName,
		"eventId":       event.EventID,
		"objectId":      event.ObjectID,
		"courseId":      event.CourseID,
		"relatedUserId": event.RelatedUserID,
	})
	return nil
}
