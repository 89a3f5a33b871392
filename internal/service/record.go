package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"portfolioadmin/internal/model"
	"portfolioadmin/internal/store"
)

var ErrIDRequired = errors.New("id is required")

var tracer = otel.Tracer("portfolioadmin/internal/service")

// StoreWriteError reports a failed create, update or delete.
type StoreWriteError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *StoreWriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// RecordService is the write façade for a single collection.
type RecordService interface {
	// CreateRecord stores fields under a new id and returns it.
	// createdAt is stamped here unless the caller already set it.
	CreateRecord(ctx context.Context, fields model.Fields) (string, error)

	// UpdateRecord merges patch into the record at id. id and createdAt in
	// the patch are ignored.
	UpdateRecord(ctx context.Context, id string, patch model.Fields) error

	// DeleteRecord removes the record at id. Missing ids are not an error.
	DeleteRecord(ctx context.Context, id string) error

	// Collection returns the collection path this service writes to.
	Collection() string
}

type recordService struct {
	store      store.Writer
	collection string
	now        func() time.Time
	newID      func() string
}

// NewRecordService constructs a RecordService bound to collection.
func NewRecordService(w store.Writer, collection string) RecordService {
	return &recordService{
		store:      w,
		collection: collection,
		now:        time.Now,
		newID:      newRecordID,
	}
}

// newRecordID returns a time-ordered UUIDv7 so ids sort by creation time.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *recordService) Collection() string { return s.collection }

func (s *recordService) startSpan(ctx context.Context, op, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "record."+op, trace.WithAttributes(
		attribute.String("record.collection", s.collection),
		attribute.String("record.id", id),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *recordService) CreateRecord(ctx context.Context, fields model.Fields) (id string, err error) {
	id = s.newID()
	ctx, span := s.startSpan(ctx, "create", id)
	defer func() { endSpan(span, err) }()

	value := fields.Without(model.FieldID)
	if _, ok := value[model.FieldCreatedAt]; !ok {
		value[model.FieldCreatedAt] = s.now().UTC().Format(time.RFC3339Nano)
	}
	if err := s.store.Set(ctx, s.collection, id, value); err != nil {
		return "", &StoreWriteError{Op: "create", Collection: s.collection, ID: id, Err: err}
	}
	return id, nil
}

func (s *recordService) UpdateRecord(ctx context.Context, id string, patch model.Fields) (err error) {
	ctx, span := s.startSpan(ctx, "update", id)
	defer func() { endSpan(span, err) }()

	if id == "" {
		return &StoreWriteError{Op: "update", Collection: s.collection, Err: ErrIDRequired}
	}
	value := patch.Without(model.FieldID, model.FieldCreatedAt)
	if err := s.store.Update(ctx, s.collection, id, value); err != nil {
		return &StoreWriteError{Op: "update", Collection: s.collection, ID: id, Err: err}
	}
	return nil
}

func (s *recordService) DeleteRecord(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "delete", id)
	defer func() { endSpan(span, err) }()

	if id == "" {
		return &StoreWriteError{Op: "delete", Collection: s.collection, Err: ErrIDRequired}
	}
	if err := s.store.Remove(ctx, s.collection, id); err != nil {
		return &StoreWriteError{Op: "delete", Collection: s.collection, ID: id, Err: err}
	}
	return nil
}
