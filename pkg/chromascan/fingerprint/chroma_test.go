package fingerprint

import (
	"math"
	"testing"
)

func sine(freq float64, seconds float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func TestHammingWindow(t *testing.T) {
	w := Hamming(ChromaWindowSize)
	if len(w) != ChromaWindowSize {
		t.Fatalf("window length %d, expected %d", len(w), ChromaWindowSize)
	}
	// Hamming endpoints are 0.08, the midpoint 1.0.
	if math.Abs(w[0]-0.08) > 1e-9 {
		t.Errorf("w[0] = %v, expected 0.08", w[0])
	}
	mid := w[(ChromaWindowSize-1)/2]
	if mid < 0.99 {
		t.Errorf("midpoint = %v, expected close to 1.0", mid)
	}
}

func TestChromaFramesDeterministic(t *testing.T) {
	samples := sine(440, 3, ChromaSampleRate)

	a, err := ChromaFrames(samples, ChromaSampleRate)
	if err != nil {
		t.Fatalf("ChromaFrames failed: %v", err)
	}
	b, err := ChromaFrames(samples, ChromaSampleRate)
	if err != nil {
		t.Fatalf("ChromaFrames failed: %v", err)
	}
	if len(a) == 0 {
		t.Fatal("expected at least one frame")
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d != %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("frame %d differs between identical runs", i)
		}
	}
}

func TestChromaFramesFrameRate(t *testing.T) {
	samples := sine(440, 5, ChromaSampleRate)
	fp, err := ChromaFrames(samples, ChromaSampleRate)
	if err != nil {
		t.Fatalf("ChromaFrames failed: %v", err)
	}
	// (len - window) / hop frames, minus the delta seed.
	want := (len(samples)-ChromaWindowSize)/ChromaHopSize + 1 - 1
	if len(fp) != want {
		t.Errorf("got %d frames, expected %d", len(fp), want)
	}
}

func TestChromaFramesDistinguishesTones(t *testing.T) {
	a, err := ChromaFrames(sine(440, 3, ChromaSampleRate), ChromaSampleRate)
	if err != nil {
		t.Fatalf("ChromaFrames failed: %v", err)
	}
	b, err := ChromaFrames(sine(587.33, 3, ChromaSampleRate), ChromaSampleRate)
	if err != nil {
		t.Fatalf("ChromaFrames failed: %v", err)
	}

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	same := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			same++
		}
	}
	if same == n {
		t.Error("fingerprints of different tones are identical")
	}
}

func TestChromaFramesTooShort(t *testing.T) {
	if _, err := ChromaFrames(make([]float64, ChromaWindowSize/2), ChromaSampleRate); err == nil {
		t.Error("expected an error for input shorter than one window")
	}
}
