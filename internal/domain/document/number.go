package document

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Sequencer yields the next sequence number for documents sharing a number
// prefix within a period key (for example "QT" in "202508"). Implementations
// must answer without scanning the whole document table; the sequence is
// monotonic per prefix+period but carries no global uniqueness guarantee.
type Sequencer interface {
	Next(ctx context.Context, prefix, period string) (int64, error)
}

// numberAlphabet is the character set for the random suffix: uppercase
// letters and digits, matching what back-office staff can read aloud.
const numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// suffixLength is the random tail of generated document numbers. The suffix
// is what keeps concurrently generated numbers distinct when two creations
// observe the same sequence value; the unique index on document_number plus
// a retry in the creation path closes the remaining window.
const suffixLength = 4

// paymentSuffixLength is the longer random tail of payment numbers, which
// carry no sequence component at all.
const paymentSuffixLength = 6

// NumberGenerator builds document numbers of the form
// {PREFIX}{YYYYMM}{sequence:04d}{random suffix}.
type NumberGenerator struct {
	sequencer Sequencer
}

// NewNumberGenerator creates a generator backed by the given sequencer.
func NewNumberGenerator(sequencer Sequencer) *NumberGenerator {
	return &NumberGenerator{sequencer: sequencer}
}

// Generate produces a new document number for the prefix at the given time.
func (g *NumberGenerator) Generate(ctx context.Context, prefix string, now time.Time) (string, error) {
	period := now.Format("200601")
	seq, err := g.sequencer.Next(ctx, prefix, period)
	if err != nil {
		return "", fmt.Errorf("next sequence for %s%s: %w", prefix, period, err)
	}
	return fmt.Sprintf("%s%s%04d%s", prefix, period, seq, RandomSuffix(suffixLength)), nil
}

// RandomSuffix returns n characters drawn from the number alphabet.
func RandomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = numberAlphabet[rand.Intn(len(numberAlphabet))]
	}
	return string(b)
}

// PaymentNumber builds a payment reference of the form
// PAY{YYYYMMDD}{random suffix}.
func PaymentNumber(now time.Time) string {
	return fmt.Sprintf("PAY%s%s", now.Format("20060102"), RandomSuffix(paymentSuffixLength))
}
