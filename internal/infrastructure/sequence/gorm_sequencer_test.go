package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSequencer_Next(t *testing.T) {
	ctx := context.Background()

	t.Run("returns count plus one for registered prefix", func(t *testing.T) {
		var asked string
		seq := NewGormSequencer(map[string]Counter{
			"QT": func(ctx context.Context, prefix string) (int64, error) {
				asked = prefix
				return 41, nil
			},
		})

		next, err := seq.Next(ctx, "QT", "202508")
		require.NoError(t, err)
		assert.Equal(t, int64(42), next)
		assert.Equal(t, "QT202508", asked, "counter should see prefix and period combined")
	})

	t.Run("starts at one for an empty period", func(t *testing.T) {
		seq := NewGormSequencer(map[string]Counter{
			"ORD": func(ctx context.Context, prefix string) (int64, error) {
				return 0, nil
			},
		})

		next, err := seq.Next(ctx, "ORD", "202509")
		require.NoError(t, err)
		assert.Equal(t, int64(1), next)
	})

	t.Run("rejects unregistered prefix", func(t *testing.T) {
		seq := NewGormSequencer(map[string]Counter{})

		_, err := seq.Next(ctx, "INV", "202508")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INV")
	})

	t.Run("propagates counter errors", func(t *testing.T) {
		dbErr := errors.New("connection refused")
		seq := NewGormSequencer(map[string]Counter{
			"QT": func(ctx context.Context, prefix string) (int64, error) {
				return 0, dbErr
			},
		})

		_, err := seq.Next(ctx, "QT", "202508")
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
	})
}
