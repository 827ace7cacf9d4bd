// Package bpmn ships the process definitions the workers serve.
package bpmn

import _ "embed"

// CertificateTransferResource is the resource name the definition is deployed under.
const CertificateTransferResource = "certificate-transfer.bpmn"

// CertificateTransfer starts one instance per course completion; its single
// service task is handled by the certificate.transfer worker. A non-retryable
// failure is caught by the boundary error event.
//
//go:embed certificate-transfer.bpmn
var CertificateTransfer []byte
