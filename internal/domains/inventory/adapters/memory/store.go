package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
)

var (
	_ ports.Catalog = (*Store)(nil)
	_ ports.Ledger  = (*Store)(nil)
)

// Store is an in-memory catalog and stock ledger.
// The map lock guards membership only; each product has its own lock for stock mutations.
type Store struct {
	mu     sync.RWMutex
	slots  map[int64]*slot
	nextID int64
}

type slot struct {
	mu      sync.Mutex
	product domain.Product
}

func NewStore() *Store {
	return &Store{slots: map[int64]*slot{}}
}

// Save inserts a product or updates its metadata. Stock of an existing product is left untouched.
func (s *Store) Save(_ context.Context, product *domain.Product) (*domain.Product, error) {
	if product == nil {
		return nil, errors.New("product is nil")
	}
	clone := *product
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if clone.ID == 0 {
		s.nextID++
		clone.ID = s.nextID
	} else if clone.ID > s.nextID {
		s.nextID = clone.ID
	}
	existing, ok := s.slots[clone.ID]
	if !ok {
		s.slots[clone.ID] = &slot{product: clone}
		s.mu.Unlock()
		return &clone, nil
	}
	s.mu.Unlock()

	existing.mu.Lock()
	defer existing.mu.Unlock()
	clone.Stock = existing.product.Stock
	existing.product = clone
	return &clone, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	sl, err := s.slot(id)
	if err != nil {
		return nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	clone := sl.product
	return &clone, nil
}

func (s *Store) List(_ context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	list := make([]*domain.Product, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		clone := sl.product
		sl.mu.Unlock()
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Store) Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Product, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]*domain.Product, 0, len(all))
	for _, p := range all {
		if filter.Matches(p) {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return filter.Less(matched[i], matched[j]) })
	return matched, nil
}

func (s *Store) Reserve(_ context.Context, productID int64, qty int) (int, error) {
	if err := domain.ValidateQuantity(qty); err != nil {
		return 0, err
	}
	sl, err := s.slot(productID)
	if err != nil {
		return 0, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if err := sl.product.Reserve(qty); err != nil {
		return sl.product.Stock, err
	}
	return sl.product.Stock, nil
}

func (s *Store) Release(_ context.Context, productID int64, qty int) (int, error) {
	if err := domain.ValidateQuantity(qty); err != nil {
		return 0, err
	}
	sl, err := s.slot(productID)
	if err != nil {
		return 0, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if err := sl.product.Release(qty); err != nil {
		return sl.product.Stock, err
	}
	return sl.product.Stock, nil
}

func (s *Store) Available(_ context.Context, productID int64) (int, error) {
	sl, err := s.slot(productID)
	if err != nil {
		return 0, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.product.Stock, nil
}

func (s *Store) slot(id int64) (*slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return sl, nil
}
