package transfercertificate

import (
	"context"
	"time"

	apperrors "ehealth-workers/internal/common/errors"
	"ehealth-workers/internal/common/events"
	"ehealth-workers/internal/common/logger"
	"ehealth-workers/internal/models"
)

// Recorder writes the audit row for a successful transfer and announces it.
type Recorder struct {
	transferLog TransferLogWriter
	emitter     events.Emitter
	logger      logger.Logger
	now         func() time.Time
}

func NewRecorder(transferLog TransferLogWriter, emitter events.Emitter, log logger.Logger, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	if emitter == nil {
		emitter = events.NewLogEmitter(log)
	}
	return &Recorder{
		transferLog: transferLog,
		emitter:     emitter,
		logger:      log,
		now:         now,
	}
}

// Record returns the audit entry id. The row is committed before emitting, so
// an emitter failure is logged and not returned.
func (r *Recorder) Record(ctx context.Context, input *Input) (int64, error) {
	at := r.now()
	entry := &models.TransferLogEntry{
		UserID:       input.UserID,
		TimeCreated:  at.Unix(),
		CompletionID: input.CompletionID,
	}

	id, err := r.transferLog.Insert(ctx, entry)
	if err != nil {
		return 0, apperrors.NewAuditInsertFailedError(err)
	}
	entry.ID = id

	event := models.NewCertificateTransferredEvent(entry, input.CourseID, at)
	if err := r.emitter.Emit(ctx, event); err != nil {
		r.logger.Error("Failed to emit certificate_transferred", map[string]interface{}{
			"transferLogId": id,
			"eventId":       event.EventID,
			"error":         err.Error(),
		})
	}

	return id, nil
}
