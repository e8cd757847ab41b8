// internal/common/camunda/client.go
package camunda

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "cv-pipeline/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultDialTimeout    = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// Client is a gateway connection used by the Zeebe broker backend.
type Client struct {
	zb     zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration // per gateway call
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (r *RetryConfig) backoff(attempt int) time.Duration {
	d := r.BaseDelay << attempt
	if r.MaxDelay > 0 && d > r.MaxDelay {
		return r.MaxDelay
	}
	return d
}

var defaultRetry = RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

// NewClientWithConfig dials the gateway. Reachability is checked separately
// through HealthCheck so boot code can retry it.
func NewClientWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg.GatewayAddress == "" {
		return nil, errors.New("zeebe gateway address is empty")
	}
	if cfg.RetryConfig == nil {
		r := defaultRetry
		cfg.RetryConfig = &r
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = defaultDialTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	zb, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("dial zeebe gateway %s: %w", cfg.GatewayAddress, err)
	}
	return &Client{zb: zb, config: cfg}, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.zb
}

func (c *Client) Close() error {
	return c.zb.Close()
}

// HealthCheck asks the gateway for the cluster topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.zb.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe topology request failed: %w", err)
	}
	return nil
}

// ExecuteWithRetry runs one gateway command. Each attempt gets its own
// request deadline, and only transient gRPC codes are retried.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	timeout := c.config.RequestTimeout
	return executeWithRetry(ctx, c.config.RetryConfig, func(ctx context.Context) (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return commandFunc(callCtx)
	}, operationName)
}

func executeWithRetry(
	ctx context.Context,
	retry *RetryConfig,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	for attempt := 0; ; attempt++ {
		result, err := commandFunc(ctx)
		if err == nil {
			return result, nil
		}
		if !transient(err) || attempt >= retry.MaxRetries {
			return nil, mapZeebeError(err, operationName, attempt)
		}

		select {
		case <-time.After(retry.backoff(attempt)):
		case <-ctx.Done():
			return nil, apperrors.NewQueueUnavailableError(
				fmt.Errorf("%s abandoned after %d attempts: %w", operationName, attempt+1, ctx.Err()))
		}
	}
}

func grpcCode(err error) codes.Code {
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Unknown
}

func transient(err error) bool {
	switch grpcCode(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		return true
	}
	return false
}

// mapZeebeError converts gateway errors into the application taxonomy.
func mapZeebeError(err error, operation string, attempt int) error {
	wrapped := fmt.Errorf("zeebe %s failed (attempt %d): %w", operation, attempt+1, err)

	switch grpcCode(err) {
	case codes.DeadlineExceeded:
		return apperrors.NewProviderTimeoutError("zeebe", wrapped)
	case codes.NotFound:
		return apperrors.NewNotFoundError("zeebe resource", operation).WithMetadata("cause", err.Error())
	case codes.Unauthenticated, codes.PermissionDenied:
		return apperrors.NewProviderError("zeebe", wrapped).WithMetadata("auth", true)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return apperrors.NewValidationError(wrapped.Error())
	default:
		return apperrors.NewQueueUnavailableError(wrapped)
	}
}
