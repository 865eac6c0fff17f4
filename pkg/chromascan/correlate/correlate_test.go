package correlate

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"chromascan/pkg/models"
)

func randomFingerprint(n int, seed int64) models.Fingerprint {
	rng := rand.New(rand.NewSource(seed))
	fp := make(models.Fingerprint, n)
	for i := range fp {
		fp[i] = rng.Uint32()
	}
	return fp
}

func TestSimilarityIdentity(t *testing.T) {
	fp := randomFingerprint(64, 1)
	got, err := Similarity(fp, fp)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	if got != 1.0 {
		t.Errorf("Similarity(x, x) = %v, expected 1.0", got)
	}
}

func TestSimilarityOpposite(t *testing.T) {
	x := models.Fingerprint{0xFFFFFFFF}
	y := models.Fingerprint{0}
	got, err := Similarity(x, y)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	if got != 0.0 {
		t.Errorf("Similarity(ones, zeros) = %v, expected 0.0", got)
	}
}

func TestSimilarityAllZero(t *testing.T) {
	x := models.Fingerprint{0, 0, 0, 0}
	y := models.Fingerprint{0, 0, 0, 0}
	got, err := Similarity(x, y)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	if got != 1.0 {
		t.Errorf("Similarity = %v, expected 1.0", got)
	}
}

func TestSimilaritySymmetry(t *testing.T) {
	x := randomFingerprint(50, 2)
	y := randomFingerprint(70, 3)

	xy, err := Similarity(x, y)
	if err != nil {
		t.Fatalf("Similarity(x, y) failed: %v", err)
	}
	yx, err := Similarity(y, x)
	if err != nil {
		t.Fatalf("Similarity(y, x) failed: %v", err)
	}
	if xy != yx {
		t.Errorf("Similarity not symmetric: %v != %v", xy, yx)
	}
}

func TestSimilarityTruncation(t *testing.T) {
	x := randomFingerprint(80, 4)
	y := randomFingerprint(30, 5)

	full, err := Similarity(x, y)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	truncated, err := Similarity(x[:30], y)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	if full != truncated {
		t.Errorf("truncation changed the score: %v != %v", full, truncated)
	}
}

func TestSimilarityHalfBits(t *testing.T) {
	// Exactly 16 of 32 bits differ in every frame.
	x := models.Fingerprint{0x0000FFFF, 0x0000FFFF}
	y := models.Fingerprint{0x00000000, 0x00000000}
	got, err := Similarity(x, y)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Similarity = %v, expected 0.5", got)
	}
}

func TestSimilarityEmptyInput(t *testing.T) {
	cases := []struct {
		name string
		x, y models.Fingerprint
	}{
		{"both empty", nil, nil},
		{"x empty", nil, models.Fingerprint{1}},
		{"y empty", models.Fingerprint{1}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Similarity(tc.x, tc.y); !errors.Is(err, ErrEmptyInput) {
				t.Errorf("expected ErrEmptyInput, got %v", err)
			}
		})
	}
}

func TestShiftedSimilarityZeroOffset(t *testing.T) {
	c := Correlator{}
	x := randomFingerprint(60, 6)
	y := randomFingerprint(60, 7)

	want, err := Similarity(x, y)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	got, ok, err := c.ShiftedSimilarity(x, y, 0)
	if err != nil {
		t.Fatalf("ShiftedSimilarity failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a valid score at offset 0")
	}
	if got != want {
		t.Errorf("ShiftedSimilarity(x, y, 0) = %v, expected %v", got, want)
	}
}

func TestShiftedSimilarityRecoversShift(t *testing.T) {
	c := Correlator{}
	base := randomFingerprint(120, 8)
	// y is x delayed by 7 frames; shifting x forward by 7 must realign them.
	x := base
	y := base[7:]

	got, ok, err := c.ShiftedSimilarity(x, y, 7)
	if err != nil {
		t.Fatalf("ShiftedSimilarity failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a valid score")
	}
	if got != 1.0 {
		t.Errorf("realigned similarity = %v, expected 1.0", got)
	}

	// Negative offsets shift the other operand.
	got, ok, err = c.ShiftedSimilarity(y, x, -7)
	if err != nil {
		t.Fatalf("ShiftedSimilarity failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a valid score")
	}
	if got != 1.0 {
		t.Errorf("negatively realigned similarity = %v, expected 1.0", got)
	}
}

func TestShiftedSimilarityInsufficientOverlap(t *testing.T) {
	c := Correlator{MinOverlap: 20}
	x := randomFingerprint(25, 9)
	y := randomFingerprint(25, 10)

	// Offset 10 leaves only 15 frames of overlap: absent, not an error.
	_, ok, err := c.ShiftedSimilarity(x, y, 10)
	if err != nil {
		t.Fatalf("expected soft absence, got error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for overlap below MinOverlap")
	}
}

func TestSweepProfileShape(t *testing.T) {
	c := Correlator{}
	x := randomFingerprint(200, 11)
	y := randomFingerprint(200, 12)

	cases := []struct {
		span, step int
		want       int
	}{
		{150, 1, 301},
		{150, 10, 31},
		{24, 10, 5},
		{20, 7, 6},
	}
	for _, tc := range cases {
		profile, err := c.Sweep(x, y, tc.span, tc.step)
		if err != nil {
			t.Fatalf("Sweep(span=%d, step=%d) failed: %v", tc.span, tc.step, err)
		}
		if len(profile) != tc.want {
			t.Errorf("Sweep(span=%d, step=%d) produced %d points, expected %d",
				tc.span, tc.step, len(profile), tc.want)
		}
		if profile[0].Offset != -tc.span {
			t.Errorf("first offset = %d, expected %d", profile[0].Offset, -tc.span)
		}
		for i := 1; i < len(profile); i++ {
			if profile[i].Offset <= profile[i-1].Offset {
				t.Errorf("offsets not strictly increasing at %d: %d <= %d",
					i, profile[i].Offset, profile[i-1].Offset)
			}
		}
	}
}

func TestSweepSpanTooLarge(t *testing.T) {
	c := Correlator{}
	x := randomFingerprint(100, 13)
	y := randomFingerprint(40, 14)

	_, err := c.Sweep(x, y, 41, 1)
	var spanErr *SpanTooLargeError
	if !errors.As(err, &spanErr) {
		t.Fatalf("expected SpanTooLargeError, got %v", err)
	}
	if spanErr.Span != 41 || spanErr.Limit != 40 {
		t.Errorf("SpanTooLargeError = {Span:%d Limit:%d}, expected {Span:41 Limit:40}",
			spanErr.Span, spanErr.Limit)
	}
}

func TestSweepSpanAtLimit(t *testing.T) {
	c := Correlator{}
	x := randomFingerprint(40, 15)
	y := randomFingerprint(40, 16)

	// span == min length is still allowed; extreme offsets simply come back
	// absent because the overlap shrinks below MinOverlap.
	profile, err := c.Sweep(x, y, 40, 1)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if profile[0].Valid {
		t.Error("expected the extreme negative offset to be absent")
	}
	if profile[len(profile)-1].Valid {
		t.Error("expected the extreme positive offset to be absent")
	}
	mid := profile[len(profile)/2]
	if !mid.Valid || mid.Offset != 0 {
		t.Errorf("expected a valid point at offset 0, got %+v", mid)
	}
}

func TestSweepFindsEmbeddedClip(t *testing.T) {
	c := Correlator{}
	long := randomFingerprint(400, 17)
	clip := long[130:330]

	profile, err := c.Sweep(long, clip, 150, 1)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	idx, offset := BestOffset(profile)
	if offset != 130 {
		t.Errorf("best offset = %d, expected 130", offset)
	}
	if profile[idx].Score != 1.0 {
		t.Errorf("best score = %v, expected 1.0", profile[idx].Score)
	}
}
