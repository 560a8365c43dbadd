package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-storefront-api/internal/domains/notifications/domain"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

type fakeObserver struct {
	name  string
	rec   *recorder
	err   error
	panic bool
}

func (f *fakeObserver) Name() string { return f.name }

func (f *fakeObserver) Update(_ context.Context, _ domain.Message) error {
	f.rec.add(f.name)
	if f.panic {
		panic("boom")
	}
	return f.err
}

func message() domain.Message {
	return domain.NewMessage(domain.EventOrderPaid, domain.Recipient{UserID: 1}, "Order confirmed", "thanks", time.Now())
}

func TestSubject_NotifiesInAttachmentOrder(t *testing.T) {
	rec := &recorder{}
	subject := NewSubject(nil,
		&fakeObserver{name: "email", rec: rec},
		&fakeObserver{name: "sms", rec: rec},
	)
	subject.Attach(&fakeObserver{name: "push", rec: rec})

	require.NoError(t, subject.Notify(context.Background(), message()))
	assert.Equal(t, []string{"email", "sms", "push"}, rec.calls)
}

func TestSubject_FailingObserverDoesNotStopOthers(t *testing.T) {
	rec := &recorder{}
	failure := errors.New("smtp down")
	subject := NewSubject(nil,
		&fakeObserver{name: "email", rec: rec, err: failure},
		&fakeObserver{name: "sms", rec: rec, panic: true},
		&fakeObserver{name: "push", rec: rec},
	)

	err := subject.Notify(context.Background(), message())
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "observer sms panicked")
	assert.Equal(t, []string{"email", "sms", "push"}, rec.calls)
}

func TestSubject_AttachDetach(t *testing.T) {
	rec := &recorder{}
	subject := NewSubject(nil)
	subject.Attach(&fakeObserver{name: "email", rec: rec})
	subject.Attach(&fakeObserver{name: "email", rec: rec})
	subject.Attach(&fakeObserver{name: "sms", rec: rec})
	assert.Equal(t, []string{"email", "sms"}, subject.Observers())

	assert.True(t, subject.Detach("email"))
	assert.False(t, subject.Detach("email"))

	require.NoError(t, subject.Notify(context.Background(), message()))
	assert.Equal(t, []string{"sms"}, rec.calls)
}

func TestMessage_Key(t *testing.T) {
	msg := message()
	assert.Equal(t, "user-1", msg.Key())
	assert.Equal(t, "ORD-1", msg.ForOrder(5, "ORD-1").Key())
	assert.Equal(t, "v", msg.With("k", "v").Attributes["k"])
	assert.Nil(t, msg.Attributes)
}
