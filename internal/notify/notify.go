// Package notify carries user-facing toast notifications: short success and
// failure messages raised by collection operations.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notifier raises transient user-facing messages.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Failure(ctx context.Context, msg string, err error)
}

// Toast is one raised notification.
type Toast struct {
	ID      string    `json:"id"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Feed keeps the most recent toasts in a bounded ring and counts every
// raised toast by level.
type Feed struct {
	mu    sync.RWMutex
	ring  []Toast
	next  int
	full  bool
	now   func() time.Time
	count *prometheus.CounterVec
}

// DefaultCapacity is the ring size used when NewFeed is given a
// non-positive capacity.
const DefaultCapacity = 50

// NewFeed creates a Feed and registers its counter on reg.
func NewFeed(reg prometheus.Registerer, capacity int) (*Feed, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	f := &Feed{
		ring: make([]Toast, capacity),
		now:  time.Now,
		count: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Total number of user notifications raised.",
			},
			[]string{"level"},
		),
	}
	if err := reg.Register(f.count); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Feed) Success(_ context.Context, msg string) {
	f.push(Toast{Level: LevelSuccess, Message: msg})
}

// Failure records a failure toast. The error detail is kept for operators;
// the message is what users see.
func (f *Feed) Failure(_ context.Context, msg string, err error) {
	t := Toast{Level: LevelError, Message: msg}
	if err != nil {
		t.Error = err.Error()
	}
	f.push(t)
}

func (f *Feed) push(t Toast) {
	t.ID = uuid.NewString()
	t.At = f.now().UTC()

	f.mu.Lock()
	f.ring[f.next] = t
	f.next = (f.next + 1) % len(f.ring)
	if f.next == 0 {
		f.full = true
	}
	f.mu.Unlock()

	f.count.WithLabelValues(t.Level).Inc()
}

// Recent returns up to n toasts, newest first. n <= 0 returns all retained.
func (f *Feed) Recent(n int) []Toast {
	f.mu.RLock()
	defer f.mu.RUnlock()

	size := f.next
	if f.full {
		size = len(f.ring)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]Toast, 0, n)
	for i := 0; i < n; i++ {
		idx := (f.next - 1 - i + len(f.ring)) % len(f.ring)
		out = append(out, f.ring[idx])
	}
	return out
}
