// Package memory implements an in-process store.Store. Intended for tests
// and local development without a database.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"portfolioadmin/internal/model"
	"portfolioadmin/internal/store"
)

type collection struct {
	order  []string
	values map[string]json.RawMessage
}

// Store implements store.Store backed by process memory.
type Store struct {
	mu    sync.Mutex
	rev   uint64
	colls map[string]*collection
	hub   *store.Hub
}

// New returns an empty in-memory store. Revisions start at 1; Rev 0 marks
// an unordered snapshot to the Hub.
func New() *Store {
	return &Store{rev: 1, colls: make(map[string]*collection), hub: store.NewHub()}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(context.Context) error { return nil }

// Subscribe registers fn and delivers the current snapshot before returning.
func (s *Store) Subscribe(_ context.Context, coll string, fn store.Handler) (store.Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("subscribe %s: nil handler", coll)
	}
	s.mu.Lock()
	sub := s.hub.Register(coll, fn)
	snap := s.snapshotLocked(coll)
	s.mu.Unlock()

	sub.Deliver(snap)
	return sub, nil
}

// Set writes the full record value.
func (s *Store) Set(_ context.Context, coll, id string, fields model.Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", coll, id, err)
	}
	s.mu.Lock()
	c := s.collLocked(coll)
	if _, exists := c.values[id]; !exists {
		c.order = append(c.order, id)
	}
	c.values[id] = raw
	snap := s.commitLocked(coll)
	s.mu.Unlock()

	s.hub.Publish(snap)
	return nil
}

// Update merges patch into the stored value.
func (s *Store) Update(_ context.Context, coll, id string, patch model.Fields) error {
	s.mu.Lock()
	c := s.colls[coll]
	var current json.RawMessage
	if c != nil {
		current = c.values[id]
	}
	if current == nil {
		s.mu.Unlock()
		return fmt.Errorf("update %s/%s: %w", coll, id, store.ErrRecordNotFound)
	}
	var fields model.Fields
	if err := json.Unmarshal(current, &fields); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("update %s/%s: stored value is not an object: %w", coll, id, err)
	}
	raw, err := json.Marshal(fields.Merge(patch))
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode %s/%s: %w", coll, id, err)
	}
	c.values[id] = raw
	snap := s.commitLocked(coll)
	s.mu.Unlock()

	s.hub.Publish(snap)
	return nil
}

// Remove deletes the record; a missing id still counts as a change.
func (s *Store) Remove(_ context.Context, coll, id string) error {
	s.mu.Lock()
	if c := s.colls[coll]; c != nil {
		if _, ok := c.values[id]; ok {
			delete(c.values, id)
			for i, k := range c.order {
				if k == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		}
	}
	snap := s.commitLocked(coll)
	s.mu.Unlock()

	s.hub.Publish(snap)
	return nil
}

// Subscribers returns the number of open subscriptions on coll.
func (s *Store) Subscribers(coll string) int { return s.hub.Subscribers(coll) }

func (s *Store) collLocked(coll string) *collection {
	c := s.colls[coll]
	if c == nil {
		c = &collection{values: make(map[string]json.RawMessage)}
		s.colls[coll] = c
	}
	return c
}

func (s *Store) commitLocked(coll string) store.Snapshot {
	s.rev++
	return s.snapshotLocked(coll)
}

func (s *Store) snapshotLocked(coll string) store.Snapshot {
	snap := store.Snapshot{Collection: coll, Rev: s.rev}
	c := s.colls[coll]
	if c == nil {
		return snap
	}
	snap.Children = make([]store.Child, 0, len(c.order))
	for _, id := range c.order {
		v := c.values[id]
		snap.Children = append(snap.Children, store.Child{Key: id, Value: append(json.RawMessage(nil), v...)})
	}
	return snap
}
