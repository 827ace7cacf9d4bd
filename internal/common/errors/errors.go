// Package errors provides the error taxonomy shared by the transfer pipeline and
// its job workers, and the mapping of that taxonomy onto Zeebe job failures.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Transfer pipeline errors
const (
	ErrCodeNoCertificateConfigured ErrorCode = "NO_CERTIFICATE_CONFIGURED"
	ErrCodeTransportFailed         ErrorCode = "TRANSFER_TRANSPORT_FAILED"
	ErrCodeTransferRejected        ErrorCode = "TRANSFER_REJECTED"
	ErrCodeUnknownStatus           ErrorCode = "TRANSFER_UNKNOWN_STATUS"

	ErrCodeCourseFieldsMissing    ErrorCode = "COURSE_FIELDS_MISSING"
	ErrCodeUserProfileMissing     ErrorCode = "USER_PROFILE_MISSING"
	ErrCodeRecordValidationFailed ErrorCode = "RECORD_VALIDATION_FAILED"
	ErrCodeLookupFailed           ErrorCode = "LOOKUP_FAILED"

	ErrCodeAuditInsertFailed ErrorCode = "AUDIT_INSERT_FAILED"
	ErrCodeEnqueueFailed     ErrorCode = "ENQUEUE_FAILED"

	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
}

// Unwrap exposes the underlying failure so errors.Is and errors.As see
// through the code.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newStandardError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoCertificateConfiguredError reports a course without a certificate activity.
func NewNoCertificateConfiguredError(courseID int64) *StandardError {
	return newStandardError(ErrCodeNoCertificateConfigured,
		"no certificate configured",
		fmt.Sprintf("courseId: %d", courseID), false)
}

// NewTransportFailedError carries the transport diagnostics of a request that got no response.
func NewTransportFailedError(diagnostic string) *StandardError {
	return newStandardError(ErrCodeTransportFailed, "transport error", diagnostic, true)
}

// NewTransferRejectedError carries the registry's own error body.
func NewTransferRejectedError(body string) *StandardError {
	return newStandardError(ErrCodeTransferRejected, "certificate rejected by registry", body, false)
}

// NewUnknownStatusError is used for every status other than 200 and 400.
func NewUnknownStatusError(statusCode int, body string) *StandardError {
	return newStandardError(ErrCodeUnknownStatus,
		fmt.Sprintf("unknown error (status %d)", statusCode), body, true)
}

func NewCourseFieldsMissingError(courseID int64, missing []string) *StandardError {
	return newStandardError(ErrCodeCourseFieldsMissing,
		"course custom fields missing",
		fmt.Sprintf("courseId: %d, fields: %s", courseID, strings.Join(missing, ", ")), false)
}

func NewUserProfileMissingError(userID int64, field string) *StandardError {
	return newStandardError(ErrCodeUserProfileMissing,
		"user profile field missing",
		fmt.Sprintf("userId: %d, field: %s", userID, field), false)
}

func NewRecordValidationFailedError(details string) *StandardError {
	return newStandardError(ErrCodeRecordValidationFailed, "certificate record is malformed", details, false)
}

func wrapStandardError(code ErrorCode, message string, err error, retryable bool) *StandardError {
	stdErr := newStandardError(code, message, err.Error(), retryable)
	stdErr.cause = err
	return stdErr
}

func NewLookupFailedError(source string, err error) *StandardError {
	return wrapStandardError(ErrCodeLookupFailed, fmt.Sprintf("%s lookup failed", source), err, true)
}

func NewAuditInsertFailedError(err error) *StandardError {
	return wrapStandardError(ErrCodeAuditInsertFailed, "transfer log insert failed", err, true)
}

// NewEnqueueFailedError reports a deferred transfer that never reached the broker.
func NewEnqueueFailedError(err error, retryable bool) *StandardError {
	return wrapStandardError(ErrCodeEnqueueFailed, "failed to queue transfer task", err, retryable)
}

func NewInputParsingFailedError(err error) *StandardError {
	return wrapStandardError(ErrCodeInputParsingFailed, "failed to parse job variables", err, false)
}

func NewValidationFailedError(details string) *StandardError {
	return newStandardError(ErrCodeValidationFailed, "input validation failed", details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns how many times the job runner should retry a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeTransportFailed,
		ErrCodeLookupFailed,
		ErrCodeAuditInsertFailed,
		ErrCodeEnqueueFailed:
		return 3

	case ErrCodeUnknownStatus:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err into a StandardError, wrapping unknown errors as internal.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return wrapStandardError(ErrCodeInternal, "unexpected error", err, false)
}

// CodeOf returns the error code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	return AsStandardError(err).Code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeNoCertificateConfigured:
		return "ELIGIBILITY"
	case ErrCodeTransportFailed, ErrCodeTransferRejected, ErrCodeUnknownStatus:
		return "REGISTRY"
	case ErrCodeCourseFieldsMissing, ErrCodeUserProfileMissing, ErrCodeRecordValidationFailed, ErrCodeLookupFailed:
		return "ASSEMBLY"
	case ErrCodeAuditInsertFailed:
		return "DATABASE"
	case ErrCodeEnqueueFailed:
		return "WORKFLOW"
	case ErrCodeInputParsingFailed, ErrCodeValidationFailed:
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
