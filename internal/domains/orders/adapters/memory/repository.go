package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order persistence adapter.
type Repository struct {
	mu         sync.RWMutex
	orders     map[int64]*domain.Order
	byKey      map[string]int64
	returns    map[int64][]*domain.Return
	nextID     int64
	nextItemID int64
	nextRetID  int64
}

func NewRepository() *Repository {
	return &Repository{
		orders:  map[int64]*domain.Order{},
		byKey:   map[string]int64{},
		returns: map[int64][]*domain.Return{},
	}
}

func (r *Repository) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.IdempotencyKey != "" {
		if _, exists := r.byKey[order.IdempotencyKey]; exists {
			return nil, ports.ErrDuplicateIdempotency
		}
	}
	clone := order.Clone()
	r.nextID++
	clone.ID = r.nextID
	clone.Version = 1
	for i := range clone.Items {
		r.nextItemID++
		clone.Items[i].ID = r.nextItemID
	}
	r.orders[clone.ID] = clone
	if clone.IdempotencyKey != "" {
		r.byKey[clone.IdempotencyKey] = clone.ID
	}
	return clone.Clone(), nil
}

func (r *Repository) Update(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.checkVersion(order)
	if err != nil {
		return nil, err
	}
	clone := r.applyUpdate(stored, order)
	return clone.Clone(), nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *Repository) GetByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return r.orders[id].Clone(), nil
}

func (r *Repository) ListByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Order, 0)
	for _, order := range r.orders {
		if order.UserID == userID {
			list = append(list, order.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *Repository) RecordReturn(_ context.Context, order *domain.Order, ret *domain.Return) (*domain.Return, error) {
	if order == nil || ret == nil {
		return nil, errors.New("order and return are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.checkVersion(order)
	if err != nil {
		return nil, err
	}
	r.applyUpdate(stored, order)
	saved := *ret
	r.nextRetID++
	saved.ID = r.nextRetID
	saved.OrderID = order.ID
	r.returns[order.ID] = append(r.returns[order.ID], &saved)
	out := saved
	return &out, nil
}

func (r *Repository) ListReturns(_ context.Context, orderID int64) ([]*domain.Return, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Return, 0, len(r.returns[orderID]))
	for _, ret := range r.returns[orderID] {
		clone := *ret
		list = append(list, &clone)
	}
	return list, nil
}

func (r *Repository) checkVersion(order *domain.Order) (*domain.Order, error) {
	stored, ok := r.orders[order.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if stored.Version != order.Version {
		return nil, ports.ErrConcurrentUpdate
	}
	return stored, nil
}

// applyUpdate copies mutable fields only; items and totals stay as created.
func (r *Repository) applyUpdate(stored, order *domain.Order) *domain.Order {
	clone := stored.Clone()
	clone.Status = order.Status
	clone.PaymentStatus = order.PaymentStatus
	clone.PaymentMethod = order.PaymentMethod
	clone.PaymentReference = order.PaymentReference
	clone.TrackingNumber = order.TrackingNumber
	clone.Notes = append([]string(nil), order.Notes...)
	clone.UpdatedAt = order.UpdatedAt
	clone.Version = stored.Version + 1
	r.orders[clone.ID] = clone
	return clone
}
