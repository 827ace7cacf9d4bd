package transfercertificate

import (
	"context"
	"time"

	"ehealth-workers/internal/common/ehealth"
	"ehealth-workers/internal/common/events"
	"ehealth-workers/internal/common/logger"
	"ehealth-workers/internal/common/moodle"
	"ehealth-workers/internal/common/observability"
	"ehealth-workers/internal/models"
)

// Input is the decoded completion event, whichever scheduler delivered it.
type Input = models.CompletionEvent

const (
	StatusTransferred = "transferred"
	StatusSkipped     = "skipped"
)

// MsgNoCertificate is reported when the course issues no certificate.
const MsgNoCertificate = "no certificate configured"

type Output struct {
	Status  string `json:"transferStatus"`
	LogID   int64  `json:"transferLogId,omitempty"`
	Message string `json:"message,omitempty"`
}

// RegistrySender posts a record to the certificate registry.
type RegistrySender interface {
	Send(ctx context.Context, record *models.CertificateTransferRecord) *ehealth.Result
}

// TransferLogWriter persists the audit row and returns its id.
type TransferLogWriter interface {
	Insert(ctx context.Context, entry *models.TransferLogEntry) (int64, error)
}

type ServiceDependencies struct {
	Courses      moodle.CourseFieldsLookup
	Users        moodle.UserProfileLookup
	Certificates moodle.CertificateActivityCheck
	Registry     RegistrySender
	TransferLog  TransferLogWriter
	Emitter      events.Emitter
	Logger       logger.Logger
	// Observability is optional.
	Observability *observability.Observability
	// Now defaults to time.Now.
	Now func() time.Time
}
