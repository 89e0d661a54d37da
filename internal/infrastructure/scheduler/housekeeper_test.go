package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Interval)
	assert.Equal(t, 5*time.Minute, cfg.TaskTimeout)
}

func TestHousekeeper_RunOnce(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	var expiredCalls, overdueCalls int
	var gotAsOf time.Time

	h := NewHousekeeper(DefaultConfig(), zap.NewNop(),
		Task{
			Name: "expire_quotes",
			Run: func(ctx context.Context, at time.Time) (int, error) {
				expiredCalls++
				gotAsOf = at
				return 3, nil
			},
		},
		Task{
			Name: "mark_overdue_payments",
			Run: func(ctx context.Context, at time.Time) (int, error) {
				overdueCalls++
				return 0, nil
			},
		},
	)

	h.RunOnce(context.Background(), asOf)

	assert.Equal(t, 1, expiredCalls)
	assert.Equal(t, 1, overdueCalls)
	assert.Equal(t, asOf, gotAsOf)
}

func TestHousekeeper_RunOnce_ContinuesAfterFailure(t *testing.T) {
	var secondRan bool

	h := NewHousekeeper(DefaultConfig(), zap.NewNop(),
		Task{
			Name: "failing_sweep",
			Run: func(ctx context.Context, at time.Time) (int, error) {
				return 0, errors.New("database unavailable")
			},
		},
		Task{
			Name: "second_sweep",
			Run: func(ctx context.Context, at time.Time) (int, error) {
				secondRan = true
				return 1, nil
			},
		},
	)

	h.RunOnce(context.Background(), time.Now())

	assert.True(t, secondRan)
}

func TestHousekeeper_RunOnce_AppliesTaskTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TaskTimeout = time.Minute

	h := NewHousekeeper(cfg, zap.NewNop(),
		Task{
			Name: "deadline_check",
			Run: func(ctx context.Context, at time.Time) (int, error) {
				deadline, ok := ctx.Deadline()
				assert.True(t, ok)
				assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
				return 0, nil
			},
		},
	)

	h.RunOnce(context.Background(), time.Now())
}

func TestHousekeeper_StartStop(t *testing.T) {
	cfg := Config{
		Enabled:     true,
		Interval:    10 * time.Millisecond,
		TaskTimeout: time.Second,
	}

	var runs atomic.Int32
	ran := make(chan struct{}, 16)

	h := NewHousekeeper(cfg, zap.NewNop(),
		Task{
			Name: "counting_sweep",
			Run: func(ctx context.Context, at time.Time) (int, error) {
				runs.Add(1)
				select {
				case ran <- struct{}{}:
				default:
				}
				return 0, nil
			},
		},
	)

	require.NoError(t, h.Start(context.Background()))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("housekeeper never ran its task")
	}

	require.NoError(t, h.Stop(context.Background()))
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestHousekeeper_StartIsIdempotent(t *testing.T) {
	cfg := Config{
		Enabled:     true,
		Interval:    time.Hour,
		TaskTimeout: time.Minute,
	}
	h := NewHousekeeper(cfg, zap.NewNop())

	require.NoError(t, h.Start(context.Background()))
	require.NoError(t, h.Start(context.Background()))
	require.NoError(t, h.Stop(context.Background()))
}

func TestHousekeeper_StopWithoutStart(t *testing.T) {
	h := NewHousekeeper(DefaultConfig(), zap.NewNop())

	assert.NoError(t, h.Stop(context.Background()))
}
