package store

import (
	"sync"
	"sync/atomic"
)

// Hub fans snapshots out to in-process subscribers. Drivers that observe
// every write themselves (memory, sqlite) publish through a Hub after each
// committed change.
type Hub struct {
	mu   sync.Mutex
	next uint64
	subs map[string]map[uint64]*hubSub
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]*hubSub)}
}

type hubSub struct {
	hub        *Hub
	id         uint64
	collection string
	fn         Handler

	deliverMu sync.Mutex
	lastRev   uint64
	closed    atomic.Bool
	once      sync.Once
}

// Register adds a subscriber without delivering anything. Drivers call it
// while holding the lock that orders their writes, then Deliver the initial
// snapshot once the lock is released.
func (h *Hub) Register(collection string, fn Handler) *HubSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	s := &hubSub{hub: h, id: h.next, collection: collection, fn: fn}
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[uint64]*hubSub)
	}
	h.subs[collection][s.id] = s
	return &HubSubscription{s: s}
}

// Publish delivers snap to every subscriber of snap.Collection.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.Lock()
	targets := make([]*hubSub, 0, len(h.subs[snap.Collection]))
	for _, s := range h.subs[snap.Collection] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.deliver(snap)
	}
}

// Subscribers returns the number of open subscriptions for collection.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

func (h *Hub) remove(s *hubSub) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.subs[s.collection]; m != nil {
		delete(m, s.id)
		if len(m) == 0 {
			delete(h.subs, s.collection)
		}
	}
}

// deliver drops snapshots older than the last one delivered, so concurrent
// writers can never roll a subscriber back to a stale state.
func (s *hubSub) deliver(snap Snapshot) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.closed.Load() {
		return
	}
	if snap.Rev != 0 && snap.Rev <= s.lastRev {
		return
	}
	s.lastRev = snap.Rev
	s.fn(snap)
}

// HubSubscription is the Subscription handed out by Hub.
type HubSubscription struct {
	s *hubSub
}

// Deliver hands snap to this subscriber only.
func (h *HubSubscription) Deliver(snap Snapshot) { h.s.deliver(snap) }

func (h *HubSubscription) Close() {
	h.s.once.Do(func() {
		h.s.closed.Store(true)
		h.s.hub.remove(h.s)
	})
}

var _ Subscription = (*HubSubscription)(nil)
