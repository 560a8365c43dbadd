package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
)

var (
	_ ports.Gateway       = (*IdempotentGateway)(nil)
	_ ports.MethodCatalog = (*IdempotentGateway)(nil)
)

const (
	operationAuthorize = "authorize"
	operationRefund    = "refund"
)

// IdempotentGateway replays the first terminal outcome recorded for an idempotency key.
// Concurrent calls with the same key share one backend call. Error results are not
// recorded so a retry reaches the backend again with the same key.
type IdempotentGateway struct {
	inner  ports.Gateway
	store  ports.IdempotencyStore
	logger *slog.Logger
	group  singleflight.Group
}

func NewIdempotentGateway(inner ports.Gateway, store ports.IdempotencyStore, logger *slog.Logger) *IdempotentGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotentGateway{inner: inner, store: store, logger: logger}
}

func (g *IdempotentGateway) Supports(method string) bool {
	return g.inner.Supports(method)
}

func (g *IdempotentGateway) Methods() map[string]domain.Capabilities {
	if catalog, ok := g.inner.(ports.MethodCatalog); ok {
		return catalog.Methods()
	}
	return nil
}

func (g *IdempotentGateway) Authorize(ctx context.Context, req domain.AuthorizeRequest) (domain.Result, error) {
	if err := req.Validate(); err != nil {
		return domain.Result{}, err
	}
	hash, err := FingerprintAuthorize(req)
	if err != nil {
		return domain.Result{}, err
	}
	key := scopedKey(operationAuthorize, req.IdempotencyKey)
	v, err, _ := g.group.Do(key, func() (any, error) {
		var result domain.Result
		replayed, err := g.replay(ctx, key, hash, &result)
		if err != nil || replayed {
			return result, err
		}
		result, err = g.inner.Authorize(ctx, req)
		if err != nil {
			return domain.Result{}, err
		}
		if result.Status == domain.StatusError {
			return result, nil
		}
		err = g.record(ctx, key, operationAuthorize, hash, result, &result)
		return result, err
	})
	if err != nil {
		return domain.Result{}, err
	}
	return v.(domain.Result), nil
}

func (g *IdempotentGateway) Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResult, error) {
	if err := req.Validate(); err != nil {
		return domain.RefundResult{}, err
	}
	hash, err := FingerprintRefund(req)
	if err != nil {
		return domain.RefundResult{}, err
	}
	key := scopedKey(operationRefund, req.IdempotencyKey)
	v, err, _ := g.group.Do(key, func() (any, error) {
		var result domain.RefundResult
		replayed, err := g.replay(ctx, key, hash, &result)
		if err != nil || replayed {
			return result, err
		}
		result, err = g.inner.Refund(ctx, req)
		if err != nil {
			return domain.RefundResult{}, err
		}
		if result.Status == domain.StatusError {
			return result, nil
		}
		err = g.record(ctx, key, operationRefund, hash, result, &result)
		return result, err
	})
	if err != nil {
		return domain.RefundResult{}, err
	}
	return v.(domain.RefundResult), nil
}

// replay decodes a stored response into out. It reports false when the key is unknown.
func (g *IdempotentGateway) replay(ctx context.Context, key, hash string, out any) (bool, error) {
	record, err := g.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	if record.RequestHash != hash {
		return false, ports.ErrIdempotencyConflict
	}
	if err := json.Unmarshal(record.Response, out); err != nil {
		return false, fmt.Errorf("decode stored %s response: %w", record.Operation, err)
	}
	return true, nil
}

// record stores the response; when another writer won the race, out is overwritten with the stored response.
// A failing store is logged but not returned: the backend call already took effect.
func (g *IdempotentGateway) record(ctx context.Context, key, operation, hash string, response any, out any) error {
	payload, err := json.Marshal(response)
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "failed to encode payment outcome", slog.String("idempotency.key", key), slog.String("error", err.Error()))
		return nil
	}
	stored, err := g.store.Save(ctx, ports.IdempotencyRecord{
		Key:         key,
		Operation:   operation,
		RequestHash: hash,
		Response:    payload,
	})
	if err != nil {
		if errors.Is(err, ports.ErrIdempotencyConflict) {
			return err
		}
		g.logger.LogAttrs(ctx, slog.LevelError, "failed to record payment outcome",
			slog.String("idempotency.key", key), slog.String("payment.operation", operation), slog.String("error", err.Error()))
		return nil
	}
	if stored != nil && len(stored.Response) > 0 {
		return json.Unmarshal(stored.Response, out)
	}
	return nil
}

func scopedKey(operation, key string) string {
	return operation + ":" + key
}
