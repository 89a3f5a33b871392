package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_RecentNewestFirst(t *testing.T) {
	f, err := NewFeed(prometheus.NewRegistry(), 3)
	require.NoError(t, err)
	ctx := context.Background()

	f.Success(ctx, "one")
	f.Failure(ctx, "two", errors.New("boom"))

	got := f.Recent(0)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, LevelError, got[0].Level)
	assert.Equal(t, "boom", got[0].Error)
	assert.Equal(t, "one", got[1].Message)
	assert.NotEmpty(t, got[1].ID)
	assert.False(t, got[1].At.IsZero())
}

func TestFeed_RingWrapsAround(t *testing.T) {
	f, err := NewFeed(prometheus.NewRegistry(), 2)
	require.NoError(t, err)
	ctx := context.Background()

	f.Success(ctx, "a")
	f.Success(ctx, "b")
	f.Success(ctx, "c")

	got := f.Recent(10)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Message)
	assert.Equal(t, "b", got[1].Message)

	assert.Len(t, f.Recent(1), 1)
}

func TestFeed_CountsByLevel(t *testing.T) {
	f, err := NewFeed(prometheus.NewRegistry(), 0)
	require.NoError(t, err)
	ctx := context.Background()

	f.Success(ctx, "ok")
	f.Success(ctx, "ok")
	f.Failure(ctx, "bad", nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(f.count.WithLabelValues(LevelSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.count.WithLabelValues(LevelError)))
	assert.Empty(t, f.Recent(1)[0].Error)
}

func TestNewFeed_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewFeed(reg, 1)
	require.NoError(t, err)

	_, err = NewFeed(reg, 1)
	assert.Error(t, err)
}
