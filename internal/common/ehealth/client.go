// Package ehealth is the client for the external certificate registry.
package ehealth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	commonhttp "ehealth-workers/internal/common/http"
	"ehealth-workers/internal/models"
)

// Outcome classifies a single transfer attempt.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeRejected        Outcome = "rejected"
	OutcomeUnknown         Outcome = "unknown"
	OutcomeTransportFailed Outcome = "transport_failed"
)

// Config is injected by the caller; nothing is read from global state.
type Config struct {
	EndpointURL  string
	APIToken     string
	Timeout      time.Duration // 0 waits for the registry indefinitely
	MaxRedirects int
}

// Result describes what the registry answered. Error is empty exactly when
// Outcome is OutcomeSuccess.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Body       string
	Error      string
}

func (r *Result) Success() bool {
	return r.Outcome == OutcomeSuccess
}

type Client struct {
	config Config
	doer   commonhttp.Doer
}

// NewClient creates a registry client. A nil doer gets an HTTP client built
// from cfg's timeout and redirect limit.
func NewClient(cfg Config, doer commonhttp.Doer) *Client {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 10
	}
	if doer == nil {
		doer = commonhttp.NewClient(cfg.Timeout, cfg.MaxRedirects)
	}
	return &Client{config: cfg, doer: doer}
}

// Send posts the record once. There is no retry here; retries, if any, are
// the job runner's business.
func (c *Client) Send(ctx context.Context, record *models.CertificateTransferRecord) *Result {
	payload, err := json.Marshal(record)
	if err != nil {
		return transportFailure(fmt.Sprintf("failed to marshal record: %v", err))
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return transportFailure(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return transportFailure(fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return transportFailure(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(fmt.Sprintf("failed to read response body: %v", err))
	}

	return classify(resp.StatusCode, string(body))
}

// endpoint appends the token after whatever query the configured URL already
// has, leaving that query byte for byte. Only the token is escaped.
func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.config.EndpointURL)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint url: %q", c.config.EndpointURL)
	}
	token := "token=" + url.QueryEscape(c.config.APIToken)
	if u.RawQuery == "" {
		u.RawQuery = token
	} else {
		u.RawQuery += "&" + token
	}
	return u.String(), nil
}

func classify(status int, body string) *Result {
	switch status {
	case http.StatusOK:
		return &Result{Outcome: OutcomeSuccess, StatusCode: status, Body: body}
	case http.StatusBadRequest:
		return &Result{Outcome: OutcomeRejected, StatusCode: status, Body: body, Error: rejectedMessage(body)}
	default:
		return &Result{
			Outcome:    OutcomeUnknown,
			StatusCode: status,
			Body:       body,
			Error:      fmt.Sprintf("unknown error (status %d): %s", status, body),
		}
	}
}

func rejectedMessage(body string) string {
	if body == "" {
		return "certificate rejected by registry"
	}
	return body
}

func transportFailure(diagnostic string) *Result {
	return &Result{Outcome: OutcomeTransportFailed, Error: "transport error: " + diagnostic}
}
