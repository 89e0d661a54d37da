package sequence

import (
	"context"
	"fmt"

	"github.com/salesflow/backend/internal/domain/document"
)

// Counter counts existing documents whose number starts with a prefix.
// The repositories' CountByNumberPrefix methods satisfy this signature.
type Counter func(ctx context.Context, prefix string) (int64, error)

// GormSequencer derives the next sequence from a count of already
// persisted documents in the period. Two concurrent generations can
// observe the same count; the random number suffix and the unique index
// on the document number absorb that race, so no locking is needed
// here. Use the Redis backend when sequence gaps under concurrency
// matter.
type GormSequencer struct {
	counters map[string]Counter
}

// NewGormSequencer creates a sequencer that counts through the given
// per-prefix counters
func NewGormSequencer(counters map[string]Counter) *GormSequencer {
	return &GormSequencer{counters: counters}
}

// Next returns one past the number of documents already carrying the
// prefix and period.
func (s *GormSequencer) Next(ctx context.Context, prefix, period string) (int64, error) {
	counter, ok := s.counters[prefix]
	if !ok {
		return 0, fmt.Errorf("no document counter registered for prefix %q", prefix)
	}
	count, err := counter(ctx, prefix+period)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents for %s%s: %w", prefix, period, err)
	}
	return count + 1, nil
}

// Ensure GormSequencer implements document.Sequencer
var _ document.Sequencer = (*GormSequencer)(nil)
