// Package notify tells parties about protocol events by email.
package notify

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers a message to a user. Delivery failures are returned but
// callers treat them as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, userID uint, msg Message) error
}

// Log only writes notifications to the log.
type Log struct{}

func (Log) Notify(_ context.Context, userID uint, msg Message) error {
	log.Infof("notify user %d: %s", userID, msg.Subject)
	return nil
}

// Sent is one delivery captured by a Recorder.
type Sent struct {
	UserID uint
	Message
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

func (r *Recorder) Notify(_ context.Context, userID uint, msg Message) error {
	r.mu.Lock()
	r.sent = append(r.sent, Sent{UserID: userID, Message: msg})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Send notifies userID and only logs a failure.
func Send(ctx context.Context, n Notifier, userID uint, msg Message) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, userID, msg); err != nil {
		log.Warnf("notify user %d (%s): %v", userID, msg.Subject, err)
	}
}
