package redis

import (
	"context"
	"errors"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
)

var (
	_ ports.Ledger = (*Ledger)(nil)
	_ ports.Seeder = (*Ledger)(nil)
)

const stockKeyPrefix = "inventory:stock:"

const (
	resultMissing      = -2
	resultInsufficient = -1
)

// reserveScript returns the new stock, -1 when stock is short or -2 when the key is absent.
var reserveScript = goredis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	return -2
end
current = tonumber(current)
local quantity = tonumber(ARGV[1])
if current < quantity then
	return -1
end
return redis.call('DECRBY', KEYS[1], quantity)
`)

var releaseScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -2
end
return redis.call('INCRBY', KEYS[1], tonumber(ARGV[1]))
`)

// Ledger keeps stock counters in Redis; Lua scripts make check-and-decrement atomic per key.
type Ledger struct {
	client goredis.UniversalClient
}

func NewLedger(client goredis.UniversalClient) *Ledger {
	return &Ledger{client: client}
}

// Seed sets the initial stock for a product unless a counter already exists.
func (l *Ledger) Seed(ctx context.Context, productID int64, stock int) error {
	if err := l.ensureClient(); err != nil {
		return err
	}
	if stock < 0 {
		return domain.ErrNegativeStock
	}
	return l.client.SetNX(ctx, stockKey(productID), stock, 0).Err()
}

func (l *Ledger) Reserve(ctx context.Context, productID int64, qty int) (int, error) {
	if err := l.ensureClient(); err != nil {
		return 0, err
	}
	if err := domain.ValidateQuantity(qty); err != nil {
		return 0, err
	}
	result, err := reserveScript.Run(ctx, l.client, []string{stockKey(productID)}, qty).Int()
	if err != nil {
		return 0, err
	}
	switch result {
	case resultMissing:
		return 0, ports.ErrNotFound
	case resultInsufficient:
		current, err := l.Available(ctx, productID)
		if err != nil {
			return 0, err
		}
		return current, domain.ErrInsufficientStock
	}
	return result, nil
}

func (l *Ledger) Release(ctx context.Context, productID int64, qty int) (int, error) {
	if err := l.ensureClient(); err != nil {
		return 0, err
	}
	if err := domain.ValidateQuantity(qty); err != nil {
		return 0, err
	}
	result, err := releaseScript.Run(ctx, l.client, []string{stockKey(productID)}, qty).Int()
	if err != nil {
		return 0, err
	}
	if result == resultMissing {
		return 0, ports.ErrNotFound
	}
	return result, nil
}

func (l *Ledger) Available(ctx context.Context, productID int64) (int, error) {
	if err := l.ensureClient(); err != nil {
		return 0, err
	}
	stock, err := l.client.Get(ctx, stockKey(productID)).Int()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, ports.ErrNotFound
		}
		return 0, err
	}
	return stock, nil
}

func (l *Ledger) ensureClient() error {
	if l == nil || l.client == nil {
		return errors.New("redis ledger not configured")
	}
	return nil
}

func stockKey(productID int64) string {
	return stockKeyPrefix + strconv.FormatInt(productID, 10)
}
