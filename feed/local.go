package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/meinhoongagan/tutor-sessions/store"
)

type subscription struct {
	filter   store.Filter
	onChange func(store.Change)
}

// Local is an in-process bus. Publish delivers synchronously, so
// subscribers observe changes in exactly the order they were published.
type Local struct {
	mu   sync.RWMutex
	subs map[string]subscription

	// serialises deliveries so concurrent publishers cannot interleave
	deliver sync.Mutex
}

var _ Bus = (*Local)(nil)

func NewLocal() *Local {
	return &Local{subs: make(map[string]subscription)}
}

func (l *Local) Subscribe(ctx context.Context, f store.Filter, onChange func(store.Change)) (func(), error) {
	id := uuid.NewString()
	l.mu.Lock()
	l.subs[id] = subscription{filter: f, onChange: onChange}
	l.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return cancel, nil
}

func (l *Local) Publish(_ context.Context, c store.Change) error {
	l.deliver.Lock()
	defer l.deliver.Unlock()

	l.mu.RLock()
	matched := make([]func(store.Change), 0, len(l.subs))
	for _, s := range l.subs {
		if s.filter.Match(c) {
			matched = append(matched, s.onChange)
		}
	}
	l.mu.RUnlock()

	for _, fn := range matched {
		fn(copyChange(c))
	}
	return nil
}

// Subscribers reports the number of live subscriptions.
func (l *Local) Subscribers() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs)
}

func (l *Local) Close() error {
	l.mu.Lock()
	l.subs = make(map[string]subscription)
	l.mu.Unlock()
	return nil
}

func copyChange(c store.Change) store.Change {
	c.Appointment = c.Appointment.Clone()
	c.Contract = c.Contract.Clone()
	return c
}
