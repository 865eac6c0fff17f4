package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"chromascan/pkg/chromascan/audio"
	"chromascan/pkg/models"
)

// Framing tunables for the native fingerprinter. The hop gives roughly eight
// frames per second at 11025 Hz, matching Chromaprint's frame rate closely
// enough for offset arithmetic in seconds to line up.
const (
	ChromaSampleRate = 11025
	ChromaWindowSize = 4096
	ChromaHopSize    = 1365

	chromaBins = 12
	minFreq    = 28.0
	maxFreq    = 3520.0
)

// Hamming returns a Hamming window of length n.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func magnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// stft computes a time-major magnitude spectrogram.
func stft(samples []float64, windowSize, hopSize int, window []float64) ([][]float64, error) {
	if len(window) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if len(samples) < windowSize {
		return nil, errors.New("input shorter than window size")
	}

	var spectrogram [][]float64
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		copy(frame, samples[start:start+windowSize])
		for i := 0; i < windowSize; i++ {
			frame[i] *= window[i]
		}
		spectrogram = append(spectrogram, magnitudeSpectrum(fft.FFTReal(frame)))
	}
	return spectrogram, nil
}

// chromaVector folds a magnitude spectrum into 12 normalized pitch classes.
func chromaVector(mag []float64, sampleRate, windowSize int) []float64 {
	chroma := make([]float64, chromaBins)
	for k := 1; k < len(mag); k++ {
		freq := float64(k) * float64(sampleRate) / float64(windowSize)
		if freq < minFreq || freq > maxFreq {
			continue
		}
		note := chromaBins*math.Log2(freq/440.0) + 57 // A4 -> class 9
		class := ((int(math.Round(note)) % chromaBins) + chromaBins) % chromaBins
		chroma[class] += mag[k] * mag[k]
	}

	norm := 0.0
	for _, c := range chroma {
		norm += c * c
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range chroma {
			chroma[i] /= norm
		}
	}
	return chroma
}

// frameBits packs one 32-bit sub-fingerprint from the current and previous
// chroma vectors: 12 bits of within-frame gradient sign, 12 bits of
// frame-to-frame energy movement, and 8 bits of gradient movement.
func frameBits(cur, prev []float64) uint32 {
	var bits uint32
	for j := 0; j < chromaBins; j++ {
		if cur[j] > cur[(j+1)%chromaBins] {
			bits |= 1 << uint(j)
		}
	}
	for j := 0; j < chromaBins; j++ {
		if cur[j] > prev[j] {
			bits |= 1 << uint(12+j)
		}
	}
	for j := 0; j < 8; j++ {
		curGrad := cur[j] - cur[j+1]
		prevGrad := prev[j] - prev[j+1]
		if curGrad > prevGrad {
			bits |= 1 << uint(24+j)
		}
	}
	return bits
}

// ChromaFrames converts mono samples into a fingerprint, one 32-bit word per
// STFT frame (the first frame only seeds the deltas and emits nothing).
func ChromaFrames(samples []float64, sampleRate int) (models.Fingerprint, error) {
	spectrogram, err := stft(samples, ChromaWindowSize, ChromaHopSize, Hamming(ChromaWindowSize))
	if err != nil {
		return nil, err
	}
	if len(spectrogram) < 2 {
		return nil, errors.New("audio too short to fingerprint")
	}

	prev := chromaVector(spectrogram[0], sampleRate, ChromaWindowSize)
	fp := make(models.Fingerprint, 0, len(spectrogram)-1)
	for t := 1; t < len(spectrogram); t++ {
		cur := chromaVector(spectrogram[t], sampleRate, ChromaWindowSize)
		fp = append(fp, frameBits(cur, prev))
		prev = cur
	}
	return fp, nil
}

// ChromaProvider is a self-contained fingerprinter used when fpcalc is not
// installed. Its fingerprints are not interchangeable with fpcalc's, so a
// reference directory must be built with the same provider that scans it.
type ChromaProvider struct{}

// Fingerprint extracts the chunk with ffmpeg, decodes it and computes chroma
// frames.
func (p *ChromaProvider) Fingerprint(ctx context.Context, path string, offsetSec, durationSec int) (models.Fingerprint, error) {
	chunk, err := audio.ExtractChunk(ctx, path, offsetSec, durationSec, audio.ExtractConfig{
		SampleRate: ChromaSampleRate,
		Channels:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting audio chunk: %w", err)
	}

	samples, sampleRate, err := audio.ReadWavBytes(chunk)
	if err != nil {
		return nil, fmt.Errorf("decoding extracted chunk: %w", err)
	}
	return ChromaFrames(samples, sampleRate)
}
