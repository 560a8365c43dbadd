package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Apurer/go-storefront-api/internal/domains/notifications/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/notifications/ports"
)

var _ ports.Notifier = (*Subject)(nil)

// Subject fans a message out to observers in attachment order.
type Subject struct {
	mu        sync.RWMutex
	observers []ports.Observer
	logger    *slog.Logger
}

func NewSubject(logger *slog.Logger, observers ...ports.Observer) *Subject {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Subject{logger: logger}
	for _, o := range observers {
		s.Attach(o)
	}
	return s
}

// Attach appends an observer. Attaching the same name twice is a no-op.
func (s *Subject) Attach(observer ports.Observer) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.observers {
		if existing.Name() == observer.Name() {
			return
		}
	}
	s.observers = append(s.observers, observer)
}

// Detach removes the observer with the given name and reports whether it was attached.
func (s *Subject) Detach(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.observers {
		if existing.Name() == name {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Observers returns the attached observer names in order.
func (s *Subject) Observers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.observers))
	for _, o := range s.observers {
		names = append(names, o.Name())
	}
	return names
}

// Notify calls every observer even when earlier ones fail and returns the joined failures.
func (s *Subject) Notify(ctx context.Context, msg domain.Message) error {
	s.mu.RLock()
	observers := append([]ports.Observer(nil), s.observers...)
	s.mu.RUnlock()

	var errs []error
	for _, observer := range observers {
		if err := s.deliver(ctx, observer, msg); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "notification observer failed",
				slog.String("observer", observer.Name()),
				slog.String("message.id", msg.ID),
				slog.String("message.type", string(msg.Type)),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Subject) deliver(ctx context.Context, observer ports.Observer, msg domain.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer %s panicked: %v", observer.Name(), r)
		}
	}()
	if err := observer.Update(ctx, msg); err != nil {
		return fmt.Errorf("observer %s: %w", observer.Name(), err)
	}
	return nil
}
