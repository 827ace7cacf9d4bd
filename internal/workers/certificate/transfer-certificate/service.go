package transfercertificate

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ehealth-workers/internal/common/ehealth"
	apperrors "ehealth-workers/internal/common/errors"
	"ehealth-workers/internal/common/metrics"
)

// Service is the transfer pipeline: eligibility, assembly, a single POST, then
// the audit row and notification. It does not retry; whoever schedules it does.
type Service struct {
	deps      ServiceDependencies
	config    *Config
	assembler *Assembler
	recorder  *Recorder
}

func NewService(deps ServiceDependencies, cfg *Config) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		deps:      deps,
		config:    cfg,
		assembler: NewAssembler(deps.Courses, deps.Users, cfg.EducationLevelCode, cfg.Location, deps.Now),
		recorder:  NewRecorder(deps.TransferLog, deps.Emitter, deps.Logger, deps.Now),
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	fields := map[string]interface{}{
		"courseId":     input.CourseID,
		"userId":       input.UserID,
		"completionId": input.CompletionID,
	}

	ctx, end := s.startSpan(ctx, input)
	defer func() {
		status := "failed"
		if err == nil {
			status = output.Status
		}
		end(status, err)
		if obs := s.deps.Observability; obs != nil {
			obs.RecordJobProcessed(ctx, status)
			obs.RecordJobDuration(ctx, time.Since(start), status)
		}
	}()

	ok, err := s.deps.Certificates.HasCertificateActivity(ctx, input.CourseID)
	if err != nil {
		return nil, apperrors.NewLookupFailedError("certificate activity", err)
	}
	if !ok {
		if s.config.StrictCertificateCheck {
			return nil, apperrors.NewNoCertificateConfiguredError(input.CourseID)
		}
		s.deps.Logger.Info("Skipping transfer: "+MsgNoCertificate, fields)
		metrics.CertificateTransfers.WithLabelValues(StatusSkipped).Inc()
		return &Output{Status: StatusSkipped, Message: MsgNoCertificate}, nil
	}

	record, err := s.assembler.Assemble(ctx, input)
	if err != nil {
		return nil, err
	}

	sendStart := time.Now()
	result := s.deps.Registry.Send(ctx, record)
	metrics.CertificateTransferDuration.WithLabelValues(string(result.Outcome)).Observe(time.Since(sendStart).Seconds())
	metrics.CertificateTransfers.WithLabelValues(string(result.Outcome)).Inc()

	if !result.Success() {
		return nil, registryError(result)
	}

	id, err := s.recorder.Record(ctx, input)
	if err != nil {
		return nil, err
	}

	fields["transferLogId"] = id
	s.deps.Logger.Info("Certificate transferred", fields)

	return &Output{Status: StatusTransferred, LogID: id}, nil
}

// TransferInline runs the pipeline for a synchronous caller. The returned
// message is empty unless the transfer failed; output is nil in that case.
func (s *Service) TransferInline(ctx context.Context, input *Input) (*Output, string) {
	output, err := s.Execute(ctx, input)
	if err != nil {
		s.deps.Logger.Warn("Inline certificate transfer failed", map[string]interface{}{
			"courseId":     input.CourseID,
			"userId":       input.UserID,
			"completionId": input.CompletionID,
			"errorCode":    string(apperrors.CodeOf(err)),
		})
		return nil, InlineMessage(err)
	}
	return output, ""
}

// InlineMessage is the caller-facing text of a pipeline error. A registry
// rejection is reported as the registry's own body.
func InlineMessage(err error) string {
	stdErr := apperrors.AsStandardError(err)
	switch {
	case stdErr.Code == apperrors.ErrCodeTransferRejected && stdErr.Details != "":
		return stdErr.Details
	case stdErr.Details == "":
		return stdErr.Message
	default:
		return stdErr.Message + ": " + stdErr.Details
	}
}

func registryError(result *ehealth.Result) error {
	switch result.Outcome {
	case ehealth.OutcomeTransportFailed:
		return apperrors.NewTransportFailedError(strings.TrimPrefix(result.Error, "transport error: "))
	case ehealth.OutcomeRejected:
		return apperrors.NewTransferRejectedError(result.Body)
	default:
		return apperrors.NewUnknownStatusError(result.StatusCode, result.Body)
	}
}

func (s *Service) startSpan(ctx context.Context, input *Input) (context.Context, func(status string, err error)) {
	obs := s.deps.Observability
	if obs == nil {
		return ctx, func(string, error) {}
	}

	ctx, span := obs.StartSpan(ctx, "certificate.transfer",
		attribute.Int64("course.id", input.CourseID),
		attribute.Int64("user.id", input.UserID),
		attribute.Int64("completion.id", input.CompletionID),
	)
	return ctx, func(status string, err error) {
		span.SetAttributes(attribute.String("transfer.status", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
		}
		span.End()
	}
}
