package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore keeps payment outcomes in memory for development and tests.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]ports.IdempotencyRecord
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		records: map[string]ports.IdempotencyRecord{},
		now:     time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *IdempotencyStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return cloneRecord(record), nil
}

func (s *IdempotencyStore) Save(_ context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[record.Key]; ok {
		if existing.RequestHash != record.RequestHash {
			return cloneRecord(existing), ports.ErrIdempotencyConflict
		}
		return cloneRecord(existing), nil
	}

	now := s.now()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.Response = bytes.Clone(record.Response)
	s.records[record.Key] = record
	return cloneRecord(record), nil
}

// PurgeExpired drops records older than ttl and reports how many were removed.
func (s *IdempotencyStore) PurgeExpired(_ context.Context, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-ttl)
	var purged int64
	for key, record := range s.records {
		if record.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			purged++
		}
	}
	return purged, nil
}

func cloneRecord(record ports.IdempotencyRecord) *ports.IdempotencyRecord {
	clone := record
	clone.Response = bytes.Clone(record.Response)
	return &clone
}
