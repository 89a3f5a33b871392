// Package store contains the remote collection store abstraction: a
// path-addressed key-value tree where each top-level collection maps
// generated ids to JSON record values, with full-collection change
// subscriptions. Drivers live in subpackages (memory, sqlite, postgres).
package store

import (
	"context"
	"encoding/json"
	"errors"

	"portfolioadmin/internal/model"
)

var ErrRecordNotFound = errors.New("record not found")

// Child is one entry of a collection snapshot.
type Child struct {
	Key   string
	Value json.RawMessage
}

// Snapshot is the full content of a collection at one point in time,
// in store enumeration order.
type Snapshot struct {
	Collection string
	Children   []Child
	// Rev orders snapshots from in-process drivers; zero means unordered.
	Rev uint64
}

// Exists reports whether the collection path holds any data.
func (s Snapshot) Exists() bool { return len(s.Children) > 0 }

// Handler receives every snapshot of a subscribed collection. Handlers must
// not call back into the store synchronously.
type Handler func(Snapshot)

// Subscription is the capability returned by Subscribe. Close ends the
// subscription; it is safe to call any number of times and never fails.
type Subscription interface {
	Close()
}

// Subscriber opens full-collection change subscriptions.
type Subscriber interface {
	// Subscribe delivers the current snapshot and then one snapshot after
	// every change under collection until the subscription is closed.
	Subscribe(ctx context.Context, collection string, fn Handler) (Subscription, error)
}

// Writer performs single-record writes. Each call is atomic.
type Writer interface {
	// Set writes the full value of a record, creating it if needed.
	Set(ctx context.Context, collection, id string, fields model.Fields) error
	// Update merges patch into an existing record; ErrRecordNotFound if absent.
	Update(ctx context.Context, collection, id string, patch model.Fields) error
	// Remove deletes a record. Removing a missing id is a no-op.
	Remove(ctx context.Context, collection, id string) error
}

// Store is a real-time collection store.
type Store interface {
	Subscriber
	Writer
	// Ping checks store connectivity.
	Ping(ctx context.Context) error
}
