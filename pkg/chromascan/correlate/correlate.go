// Package correlate implements the fingerprint comparison core: bitwise
// similarity between Chromaprint frame sequences, offset-shifted similarity,
// and the cross-correlation sweep that produces a score profile.
package correlate

import (
	"errors"
	"fmt"
	"math/bits"

	"chromascan/pkg/models"
)

// DefaultMinOverlap is the minimum number of frames two fingerprints must
// share after shifting for a similarity score to be meaningful.
const DefaultMinOverlap = 20

// ErrEmptyInput is returned when a fingerprint with no frames is passed to
// Similarity. Callers are expected to pre-filter empty fingerprints.
var ErrEmptyInput = errors.New("empty fingerprint cannot be correlated")

// SpanTooLargeError is returned by Sweep when the requested span exceeds the
// shortest fingerprint. The orchestrator clamps spans before sweeping, so a
// correct caller never sees this.
type SpanTooLargeError struct {
	Span  int
	Limit int
}

func (e *SpanTooLargeError) Error() string {
	return fmt.Sprintf("span %d exceeds shortest fingerprint length %d: reduce the span or use a longer sample", e.Span, e.Limit)
}

// ScorePoint is one entry of a score profile. Valid is false when the
// shifted overlap was below the minimum and no score could be computed.
type ScorePoint struct {
	Score  float64
	Offset int
	Valid  bool
}

// Similarity computes the normalized bit agreement between two fingerprints.
// The longer sequence is truncated to the shorter one, aligned from the
// start. Each frame pair contributes (32 - popcount(x^y))/32 and the result
// is the mean over all aligned frames, so 1.0 means bitwise identical and
// 0.0 maximally dissimilar.
func Similarity(x, y models.Fingerprint) (float64, error) {
	if len(x) == 0 || len(y) == 0 {
		return 0, ErrEmptyInput
	}
	if len(x) > len(y) {
		x = x[:len(y)]
	} else if len(x) < len(y) {
		y = y[:len(x)]
	}

	agreement := 0
	for i := range x {
		agreement += 32 - bits.OnesCount32(x[i]^y[i])
	}
	return float64(agreement) / float64(len(x)) / 32.0, nil
}

// Correlator shifts fingerprints against each other and sweeps offset
// ranges. The zero value uses DefaultMinOverlap.
type Correlator struct {
	// MinOverlap is the smallest post-shift overlap (in frames) that still
	// yields a score; shorter overlaps report an absent point instead.
	MinOverlap int
}

func (c Correlator) minOverlap() int {
	if c.MinOverlap > 0 {
		return c.MinOverlap
	}
	return DefaultMinOverlap
}

// ShiftedSimilarity computes Similarity with y offset from x by the given
// number of frames. A positive offset drops the head of x (the reference
// lags), a negative offset drops the head of y (the reference leads). When
// the remaining overlap is below MinOverlap it returns ok=false rather than
// an error: sweeps legitimately probe offsets near the end of short inputs.
func (c Correlator) ShiftedSimilarity(x, y models.Fingerprint, offset int) (score float64, ok bool, err error) {
	if offset > 0 {
		x = x[offset:]
		if len(y) > len(x) {
			y = y[:len(x)]
		}
	} else if offset < 0 {
		y = y[-offset:]
		if len(x) > len(y) {
			x = x[:len(y)]
		}
	}
	if min(len(x), len(y)) < c.minOverlap() {
		return 0, false, nil
	}
	score, err = Similarity(x, y)
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

// Sweep cross-correlates x and y at every offset from -span to +span
// inclusive, stepping by step, and returns the score profile in increasing
// offset order. The profile always has floor(2*span/step)+1 points; points
// whose overlap fell below MinOverlap are present but not Valid.
func (c Correlator) Sweep(x, y models.Fingerprint, span, step int) ([]ScorePoint, error) {
	if limit := min(len(x), len(y)); span > limit {
		return nil, &SpanTooLargeError{Span: span, Limit: limit}
	}
	if step <= 0 {
		step = 1
	}

	profile := make([]ScorePoint, 0, 2*span/step+1)
	for offset := -span; offset <= span; offset += step {
		score, ok, err := c.ShiftedSimilarity(x, y, offset)
		if err != nil {
			return nil, err
		}
		profile = append(profile, ScorePoint{Score: score, Offset: offset, Valid: ok})
	}
	return profile, nil
}
