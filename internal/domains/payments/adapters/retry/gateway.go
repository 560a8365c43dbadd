// Package retry offers an opt-in Gateway decorator that retries error-status outcomes.
// The purchase flow never installs it implicitly; callers choose it when wiring.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
)

var _ ports.Gateway = (*Gateway)(nil)

// Gateway retries calls whose outcome has StatusError. Declines are final.
// The idempotency key is passed unchanged on every attempt.
type Gateway struct {
	inner       ports.Gateway
	maxRetries  uint64
	initial     time.Duration
	maxInterval time.Duration
	logger      *slog.Logger
}

type Option func(*Gateway)

func WithMaxRetries(n uint64) Option {
	return func(g *Gateway) { g.maxRetries = n }
}

func WithIntervals(initial, max time.Duration) Option {
	return func(g *Gateway) {
		if initial > 0 {
			g.initial = initial
		}
		if max > 0 {
			g.maxInterval = max
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func New(inner ports.Gateway, opts ...Option) *Gateway {
	g := &Gateway{
		inner:       inner,
		maxRetries:  2,
		initial:     200 * time.Millisecond,
		maxInterval: 2 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Gateway) Supports(method string) bool {
	return g.inner.Supports(method)
}

func (g *Gateway) Authorize(ctx context.Context, req domain.AuthorizeRequest) (domain.Result, error) {
	var (
		result  domain.Result
		callErr error
	)
	err := backoff.RetryNotify(func() error {
		result, callErr = g.inner.Authorize(ctx, req)
		if callErr != nil {
			return backoff.Permanent(callErr)
		}
		if result.Status == domain.StatusError {
			return errRetryable{message: result.Message}
		}
		return nil
	}, g.policy(ctx), g.notify(ctx, "authorize", req.IdempotencyKey))
	if callErr != nil {
		return domain.Result{}, callErr
	}
	// A deadline hit while waiting still reports the backend's error outcome.
	if err != nil && result.Status != domain.StatusError {
		return domain.Result{}, err
	}
	return result, nil
}

func (g *Gateway) Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResult, error) {
	var (
		result  domain.RefundResult
		callErr error
	)
	err := backoff.RetryNotify(func() error {
		result, callErr = g.inner.Refund(ctx, req)
		if callErr != nil {
			return backoff.Permanent(callErr)
		}
		if result.Status == domain.StatusError {
			return errRetryable{message: result.Message}
		}
		return nil
	}, g.policy(ctx), g.notify(ctx, "refund", req.IdempotencyKey))
	if callErr != nil {
		return domain.RefundResult{}, callErr
	}
	if err != nil && result.Status != domain.StatusError {
		return domain.RefundResult{}, err
	}
	return result, nil
}

func (g *Gateway) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.initial
	exp.MaxInterval = g.maxInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, g.maxRetries), ctx)
}

func (g *Gateway) notify(ctx context.Context, operation, key string) backoff.Notify {
	return func(err error, wait time.Duration) {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "retrying payment call",
			slog.String("payment.operation", operation),
			slog.String("idempotency.key", key),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	}
}

type errRetryable struct {
	message string
}

func (e errRetryable) Error() string { return "payment backend error: " + e.message }
