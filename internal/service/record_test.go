package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"portfolioadmin/internal/model"
	"portfolioadmin/internal/store"
	storeMocks "portfolioadmin/internal/store/mocks"
)

func newTestService(m *storeMocks.MockStore) *recordService {
	svc := NewRecordService(m, "certificates").(*recordService)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("WIB", 7*3600)) }
	svc.newID = func() string { return "gen-id" }
	return svc
}

func TestRecordService_CreateRecord(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		fields     model.Fields
		setupMocks func(m *storeMocks.MockStore)
		wantID     string
		wantErr    bool
	}{
		{
			name:   "stamps createdAt in UTC",
			fields: model.Fields{"title": "A"},
			setupMocks: func(m *storeMocks.MockStore) {
				m.On("Set", mock.Anything, "certificates", "gen-id", model.Fields{
					"title":     "A",
					"createdAt": "2025-03-01T05:00:00Z",
				}).Return(nil)
			},
			wantID: "gen-id",
		},
		{
			name:   "keeps caller supplied createdAt and drops id",
			fields: model.Fields{"title": "A", "id": "forged", "createdAt": "2020-01-01T00:00:00Z"},
			setupMocks: func(m *storeMocks.MockStore) {
				m.On("Set", mock.Anything, "certificates", "gen-id", model.Fields{
					"title":     "A",
					"createdAt": "2020-01-01T00:00:00Z",
				}).Return(nil)
			},
			wantID: "gen-id",
		},
		{
			name:   "store failure",
			fields: model.Fields{"title": "A"},
			setupMocks: func(m *storeMocks.MockStore) {
				m.On("Set", mock.Anything, "certificates", "gen-id", mock.Anything).Return(errors.New("permission denied"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(storeMocks.MockStore)
			tt.setupMocks(m)
			svc := newTestService(m)

			id, err := svc.CreateRecord(ctx, tt.fields)

			if tt.wantErr {
				var writeErr *StoreWriteError
				require.True(t, errors.As(err, &writeErr))
				assert.Equal(t, "create", writeErr.Op)
				assert.Equal(t, "certificates", writeErr.Collection)
				assert.Contains(t, err.Error(), "permission denied")
				assert.Empty(t, id)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestRecordService_CreateRecord_DoesNotMutateInput(t *testing.T) {
	m := new(storeMocks.MockStore)
	m.On("Set", mock.Anything, "certificates", "gen-id", mock.Anything).Return(nil)
	svc := newTestService(m)

	in := model.Fields{"title": "A"}
	_, err := svc.CreateRecord(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, model.Fields{"title": "A"}, in)
}

func TestRecordService_UpdateRecord(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		patch      model.Fields
		setupMocks func(m *storeMocks.MockStore)
		wantErr    error
	}{
		{
			name:  "happy path strips immutable keys",
			id:    "c1",
			patch: model.Fields{"title": "B", "id": "x", "createdAt": "later"},
			setupMocks: func(m *storeMocks.MockStore) {
				m.On("Update", mock.Anything, "certificates", "c1", model.Fields{"title": "B"}).Return(nil)
			},
		},
		{
			name:       "validation - empty id",
			id:         "",
			patch:      model.Fields{"title": "B"},
			setupMocks: func(m *storeMocks.MockStore) {},
			wantErr:    ErrIDRequired,
		},
		{
			name:  "missing record",
			id:    "gone",
			patch: model.Fields{"title": "B"},
			setupMocks: func(m *storeMocks.MockStore) {
				m.On("Update", mock.Anything, "certificates", "gone", model.Fields{"title": "B"}).Return(store.ErrRecordNotFound)
			},
			wantErr: store.ErrRecordNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(storeMocks.MockStore)
			tt.setupMocks(m)
			svc := newTestService(m)

			err := svc.UpdateRecord(ctx, tt.id, tt.patch)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var writeErr *StoreWriteError
				assert.True(t, errors.As(err, &writeErr))
			} else {
				assert.NoError(t, err)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestRecordService_DeleteRecord(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(m *storeMocks.MockStore)
		wantErr    bool
	}{
		{
			name: "happy path",
			id:   "c1",
			setupMocks: func(m *storeMocks.MockStore) {
				m.On("Remove", mock.Anything, "certificates", "c1").Return(nil)
			},
		},
		{
			name: "missing id is a no-op at the store",
			id:   "already-gone",
			setupMocks: func(m *storeMocks.MockStore) {
				m.On("Remove", mock.Anything, "certificates", "already-gone").Return(nil)
			},
		},
		{
			name:       "validation - empty id",
			setupMocks: func(m *storeMocks.MockStore) {},
			wantErr:    true,
		},
		{
			name: "store failure",
			id:   "c1",
			setupMocks: func(m *storeMocks.MockStore) {
				m.On("Remove", mock.Anything, "certificates", "c1").Return(errors.New("timeout"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(storeMocks.MockStore)
			tt.setupMocks(m)
			svc := newTestService(m)

			err := svc.DeleteRecord(ctx, tt.id)

			if tt.wantErr {
				var writeErr *StoreWriteError
				assert.True(t, errors.As(err, &writeErr))
				assert.Equal(t, "delete", writeErr.Op)
			} else {
				assert.NoError(t, err)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestNewRecordID_IsTimeOrderedUUID(t *testing.T) {
	a, b := newRecordID(), newRecordID()

	pa, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), pa.Version())
	assert.NotEqual(t, a, b)
	assert.Equal(t, "certificates", NewRecordService(nil, "certificates").Collection())
}

func TestRecordService_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	m := new(storeMocks.MockStore)
	m.On("Remove", mock.Anything, "certificates", "c1").Return(errors.New("timeout"))
	svc := newTestService(m)

	_ = svc.DeleteRecord(context.Background(), "c1")

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "record.delete", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
