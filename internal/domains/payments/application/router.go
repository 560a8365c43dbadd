package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
)

var (
	_ ports.Gateway       = (*Router)(nil)
	_ ports.MethodCatalog = (*Router)(nil)
)

// DefaultCallTimeout bounds a single backend call when no timeout is configured.
const DefaultCallTimeout = 10 * time.Second

// Router binds method identifiers to backends once at construction and dispatches by lookup.
type Router struct {
	backends map[string]ports.Backend
	timeout  time.Duration
	logger   *slog.Logger
}

type RouterOption func(*Router)

// WithCallTimeout bounds every backend call; an expired deadline is reported as an error status.
func WithCallTimeout(timeout time.Duration) RouterOption {
	return func(r *Router) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter copies the method bindings so later changes to the map have no effect.
func NewRouter(bindings map[string]ports.Backend, opts ...RouterOption) (*Router, error) {
	backends := make(map[string]ports.Backend, len(bindings))
	for method, backend := range bindings {
		method = normalizeMethod(method)
		if method == "" {
			return nil, errors.New("payment method binding has empty name")
		}
		if backend == nil {
			return nil, fmt.Errorf("payment method %q bound to nil backend", method)
		}
		backends[method] = backend
	}
	r := &Router{
		backends: backends,
		timeout:  DefaultCallTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

func (r *Router) Supports(method string) bool {
	_, ok := r.backends[normalizeMethod(method)]
	return ok
}

// Methods reports the capabilities of every bound method.
func (r *Router) Methods() map[string]domain.Capabilities {
	methods := make(map[string]domain.Capabilities, len(r.backends))
	for method, backend := range r.backends {
		methods[method] = backend.Capabilities()
	}
	return methods
}

func (r *Router) Authorize(ctx context.Context, req domain.AuthorizeRequest) (domain.Result, error) {
	backend, err := r.backend(req.Method)
	if err != nil {
		return domain.Result{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.Result{}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := backend.Authorize(callCtx, req)
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "payment backend call failed",
			slog.String("payment.backend", backend.Name()),
			slog.String("payment.order_number", req.OrderNumber),
			slog.String("error", err.Error()))
		result = domain.Failed(domain.StatusError, req.Amount, req.CurrencyOrDefault(), backendFailureMessage(err))
	}
	result.Backend = backend.Name()
	return result, nil
}

func (r *Router) Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResult, error) {
	backend, err := r.backend(req.Method)
	if err != nil {
		return domain.RefundResult{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.RefundResult{}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := backend.Refund(callCtx, req)
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "payment backend refund failed",
			slog.String("payment.backend", backend.Name()),
			slog.String("payment.reference", req.PaymentReference),
			slog.String("error", err.Error()))
		return domain.RefundResult{
			PaymentReference: req.PaymentReference,
			Amount:           req.Amount,
			Status:           domain.StatusError,
			Message:          backendFailureMessage(err),
		}, nil
	}
	return result, nil
}

func (r *Router) backend(method string) (ports.Backend, error) {
	backend, ok := r.backends[normalizeMethod(method)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedMethod, method)
	}
	return backend, nil
}

func backendFailureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "payment backend timed out"
	}
	return err.Error()
}

func normalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
