// Package collection keeps a live local mirror of one remote collection and
// exposes its mutations with user-facing feedback.
//
// A Sync opens a single store subscription on Activate and replaces its
// mirror with the full decoded snapshot on every notification. Mutations go
// through the record service and never touch the mirror directly; their
// effect shows up when the store echoes the change.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"portfolioadmin/internal/logging"
	"portfolioadmin/internal/model"
	"portfolioadmin/internal/notify"
	"portfolioadmin/internal/service"
	"portfolioadmin/internal/store"
)

// Decoder turns one snapshot child into a typed record.
type Decoder[T any] func(id string, raw json.RawMessage) (T, error)

// Labels name a collection in user-facing messages.
type Labels struct {
	// Noun is the capitalized singular, e.g. "Certificate".
	Noun string
	// Plural is the lowercase plural, e.g. "certificates".
	Plural string
}

// ErrInvalidRecord is returned by mutations whose fields do not decode into
// the collection's record type. Nothing is written.
var ErrInvalidRecord = errors.New("invalid record")

// StoreReadError reports a snapshot that could not be decoded or a
// subscription that could not be opened.
type StoreReadError struct {
	Collection string
	// Key is the offending child, empty when the failure is not tied to one.
	Key string
	Err error
}

func (e *StoreReadError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("read %s: %v", e.Collection, e.Err)
	}
	return fmt.Sprintf("read %s/%s: %v", e.Collection, e.Key, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

// State is a consistent view of the mirror and the loading flag.
type State[T any] struct {
	Items   []T  `json:"items"`
	Loading bool `json:"loading"`
}

// Sync mirrors one collection. It is safe for concurrent use.
type Sync[T any] struct {
	records    service.RecordService
	subscriber store.Subscriber
	decode     Decoder[T]
	notifier   notify.Notifier
	log        logging.Logger
	collection string
	labels     Labels

	mu      sync.RWMutex
	items   []T
	loading bool
	active  bool
	// gen changes on every Activate and Deactivate; notifications carrying
	// an older generation are dropped.
	gen uint64
	sub store.Subscription
}

// New builds a Sync over the collection records writes to.
func New[T any](
	records service.RecordService,
	subscriber store.Subscriber,
	decode Decoder[T],
	notifier notify.Notifier,
	log logging.Logger,
	labels Labels,
) *Sync[T] {
	coll := records.Collection()
	return &Sync[T]{
		records:    records,
		subscriber: subscriber,
		decode:     decode,
		notifier:   notifier,
		log:        log.With("component", "collection", "collection", coll),
		collection: coll,
		labels:     labels,
		items:      []T{},
		loading:    true,
	}
}

// NewCertificates wires the certificates mirror.
func NewCertificates(records service.RecordService, subscriber store.Subscriber, notifier notify.Notifier, log logging.Logger) *Sync[model.Certificate] {
	return New(records, subscriber, model.DecodeCertificate, notifier, log, Labels{Noun: "Certificate", Plural: "certificates"})
}

// NewProjects wires the projects mirror.
func NewProjects(records service.RecordService, subscriber store.Subscriber, notifier notify.Notifier, log logging.Logger) *Sync[model.Project] {
	return New(records, subscriber, model.DecodeProject, notifier, log, Labels{Noun: "Project", Plural: "projects"})
}

// Collection returns the store path being mirrored.
func (s *Sync[T]) Collection() string { return s.collection }

// Activate opens the subscription. Calling it while active does nothing.
// A failure to subscribe is notified, logged and returned as a
// *StoreReadError; the Sync is left inactive and not loading.
func (s *Sync[T]) Activate(ctx context.Context) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = true
	s.loading = true
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	sub, err := s.subscriber.Subscribe(ctx, s.collection, func(snap store.Snapshot) {
		s.handle(gen, snap)
	})
	if err != nil {
		readErr := &StoreReadError{Collection: s.collection, Err: err}
		s.mu.Lock()
		if s.gen == gen {
			s.active = false
			s.loading = false
		}
		s.mu.Unlock()
		s.notifier.Failure(ctx, "Failed to fetch "+s.labels.Plural, readErr)
		s.log.Error(ctx, "collection_subscribe_failed", "error", err)
		return readErr
	}

	s.mu.Lock()
	if s.gen != gen {
		// Deactivated while subscribing.
		s.mu.Unlock()
		sub.Close()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()

	s.log.Debug(ctx, "collection_activated")
	return nil
}

// Deactivate closes the subscription. Safe to call when inactive and any
// number of times.
func (s *Sync[T]) Deactivate() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.gen++
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	s.log.Debug(context.Background(), "collection_deactivated")
}

// Items returns a copy of the mirror.
func (s *Sync[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Sync[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Sync[T]) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// State returns the mirror and loading flag read together.
func (s *Sync[T]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]T, len(s.items))
	copy(items, s.items)
	return State[T]{Items: items, Loading: s.loading}
}

func (s *Sync[T]) handle(gen uint64, snap store.Snapshot) {
	ctx := context.Background()
	if !s.current(gen) {
		s.log.Debug(ctx, "collection_stale_snapshot_dropped", "rev", snap.Rev)
		return
	}
	defer s.release(gen)

	items, err := s.decodeAll(snap)
	if err != nil {
		s.notifier.Failure(ctx, "Failed to fetch "+s.labels.Plural, err)
		s.log.Error(ctx, "collection_decode_failed", "error", err, "children", len(snap.Children))
		return
	}

	s.mu.Lock()
	if s.gen == gen {
		s.items = items
	}
	s.mu.Unlock()
}

func (s *Sync[T]) current(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen == gen
}

// release clears loading once a notification has been handled, whatever
// its outcome.
func (s *Sync[T]) release(gen uint64) {
	s.mu.Lock()
	if s.gen == gen {
		s.loading = false
	}
	s.mu.Unlock()
}

func (s *Sync[T]) decodeAll(snap store.Snapshot) (items []T, err error) {
	var key string
	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = &StoreReadError{Collection: s.collection, Key: key, Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	if !snap.Exists() {
		return []T{}, nil
	}
	items = make([]T, 0, len(snap.Children))
	for _, child := range snap.Children {
		key = child.Key
		item, err := s.decode(child.Key, child.Value)
		if err != nil {
			return nil, &StoreReadError{Collection: s.collection, Key: child.Key, Err: err}
		}
		items = append(items, item)
	}
	return items, nil
}

// Add creates a record and returns its id. The record's id and createdAt
// are ignored.
func (s *Sync[T]) Add(ctx context.Context, record T) (string, error) {
	fields, err := model.FieldsOf(record)
	if err != nil {
		return "", s.fail(ctx, "add", "", err)
	}
	return s.AddFields(ctx, fields)
}

// AddFields is Add for callers holding the raw field set.
func (s *Sync[T]) AddFields(ctx context.Context, fields model.Fields) (string, error) {
	if err := s.validate(fields); err != nil {
		return "", s.fail(ctx, "add", "", err)
	}
	id, err := s.records.CreateRecord(ctx, fields)
	if err != nil {
		return "", s.fail(ctx, "add", "", err)
	}
	s.notifier.Success(ctx, s.labels.Noun+" added successfully")
	return id, nil
}

// Update merges patch into the record at id. A null value removes the field.
func (s *Sync[T]) Update(ctx context.Context, id string, patch model.Fields) error {
	if err := s.validate(patch); err != nil {
		return s.fail(ctx, "update", id, err)
	}
	if err := s.records.UpdateRecord(ctx, id, patch); err != nil {
		return s.fail(ctx, "update", id, err)
	}
	s.notifier.Success(ctx, s.labels.Noun+" updated successfully")
	return nil
}

// Remove deletes the record at id. Associated media is left alone.
func (s *Sync[T]) Remove(ctx context.Context, id string) error {
	if err := s.records.DeleteRecord(ctx, id); err != nil {
		return s.fail(ctx, "delete", id, err)
	}
	s.notifier.Success(ctx, s.labels.Noun+" deleted successfully")
	return nil
}

// validate rejects fields the collection decoder would refuse once stored.
// Reserved keys are skipped; the record service strips them.
func (s *Sync[T]) validate(fields model.Fields) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: decoder panic: %v", ErrInvalidRecord, r)
		}
	}()

	raw, err := json.Marshal(fields.Without(model.FieldID, model.FieldCreatedAt))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if _, err := s.decode("", raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

func (s *Sync[T]) fail(ctx context.Context, verb, id string, err error) error {
	s.notifier.Failure(ctx, "Failed to "+verb+" "+strings.ToLower(s.labels.Noun), err)
	s.log.Error(ctx, "collection_write_failed", "op", verb, "id", id, "error", err)
	return err
}
