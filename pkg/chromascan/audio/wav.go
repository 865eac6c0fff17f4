package audio

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// decodeWav reads every PCM frame from a WAV decoder and returns mono
// float64 samples normalized to [-1, 1]. Multi-channel input is averaged.
func decodeWav(decoder *wav.Decoder) ([]float64, int, error) {
	if !decoder.IsValidFile() {
		return nil, 0, errors.New("not a valid WAV file")
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: int(decoder.NumChans),
			SampleRate:  int(decoder.SampleRate),
		},
		Data:           make([]int, 8192),
		SourceBitDepth: int(decoder.BitDepth),
	}

	channels := int(decoder.NumChans)
	if channels == 0 {
		return nil, 0, errors.New("WAV file reports zero channels")
	}
	scale := 1.0 / math.Pow(2, float64(decoder.BitDepth)-1)

	var samples []float64
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, 0, fmt.Errorf("reading PCM samples: %w", err)
		}
		if n == 0 {
			break
		}
		data := buf.Data[:n]
		for i := 0; i+channels <= len(data); i += channels {
			sum := 0.0
			for ch := 0; ch < channels; ch++ {
				sum += float64(data[i+ch]) * scale
			}
			samples = append(samples, sum/float64(channels))
		}
	}
	return samples, int(decoder.SampleRate), nil
}

// ReadWavFile reads a PCM WAV file and returns mono, normalized samples and
// the sample rate.
func ReadWavFile(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return decodeWav(wav.NewDecoder(f))
}

// ReadWavBytes decodes in-memory WAV data, as produced by ExtractChunk.
func ReadWavBytes(data []byte) ([]float64, int, error) {
	return decodeWav(wav.NewDecoder(bytes.NewReader(data)))
}

// RMS returns the root mean square level of a sample block, 0 for an empty
// block.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
