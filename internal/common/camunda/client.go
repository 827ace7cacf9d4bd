// internal/common/camunda/client.go
package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"ehealth-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client is the broker connection shared by the transfer worker and the task queue.
type Client struct {
	zb     zbc.Client
	config ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	// ConnectionTimeout bounds the topology probe on dial and in HealthCheck.
	ConnectionTimeout time.Duration
	// RequestTimeout bounds a single broker command. Zero leaves it to the caller's context.
	RequestTimeout time.Duration
	Retry          RetryPolicy
}

// RetryPolicy applies to broker calls made by this process, not to jobs.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   10 * time.Second,
}

// backoff returns the wait before retry number attempt+1.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << attempt
	if delay <= 0 || delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// NewClient dials the gateway and probes the topology before returning.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	zb, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{zb: zb, config: cfg}
	if err := c.HealthCheck(context.Background()); err != nil {
		zb.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.GatewayAddress, err)
	}
	return c, nil
}

// GetClient exposes the raw client for opening job workers.
func (c *Client) GetClient() zbc.Client {
	return c.zb
}

func (c *Client) Close() error {
	return c.zb.Close()
}

// StartProcess creates an instance of the latest deployed version of a BPMN
// process and returns its key.
func (c *Client) StartProcess(ctx context.Context, bpmnProcessID string, variables interface{}) (int64, error) {
	return executeWithRetry(ctx, c.config.Retry, "create-instance:"+bpmnProcessID, func(ctx context.Context) (int64, error) {
		cmd, err := c.zb.NewCreateInstanceCommand().
			BPMNProcessId(bpmnProcessID).
			LatestVersion().
			VariablesFromObject(variables)
		if err != nil {
			return 0, err
		}

		if c.config.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
			defer cancel()
		}

		resp, err := cmd.Send(ctx)
		if err != nil {
			return 0, err
		}
		return resp.GetProcessInstanceKey(), nil
	})
}

// DeployProcess deploys a BPMN resource and returns the metadata of the process
// it defines. Redeploying an unchanged resource keeps the current version.
func (c *Client) DeployProcess(ctx context.Context, name string, definition []byte) (*pb.ProcessMetadata, error) {
	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	resp, err := c.zb.NewDeployResourceCommand().AddResource(definition, name).Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", name, err)
	}
	for _, d := range resp.GetDeployments() {
		if process := d.GetProcess(); process != nil {
			return process, nil
		}
	}
	return nil, fmt.Errorf("deployment of %s contained no process", name)
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.zb.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// executeWithRetry retries transient broker failures with exponential backoff.
// Every failure that escapes is an ENQUEUE_FAILED error.
func executeWithRetry[T any](ctx context.Context, policy RetryPolicy, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		retryable := isRetryableZeebeError(err)
		if !retryable || attempt >= policy.MaxRetries {
			wrapped := fmt.Errorf("zeebe operation '%s' failed after %d attempts: %w", operation, attempt+1, err)
			return zero, errors.NewEnqueueFailedError(wrapped, retryable)
		}

		select {
		case <-time.After(policy.backoff(attempt)):
		case <-ctx.Done():
			wrapped := fmt.Errorf("zeebe operation '%s' cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
			return zero, errors.NewEnqueueFailedError(wrapped, true)
		}
	}
}

var retryableCodes = map[codes.Code]bool{
	codes.Unavailable:       true,
	codes.DeadlineExceeded:  true,
	codes.ResourceExhausted: true,
	codes.Aborted:           true,
}

// isRetryableZeebeError reports transient gateway failures. Errors that did
// not come through gRPC are matched on their text.
func isRetryableZeebeError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return retryableCodes[s.Code()]
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"connection refused", "connection reset", "deadline exceeded", "unavailable", "broken pipe"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
