// wavspec renders spectrogram PNGs from WAV files. Useful when a scan
// misses a clip you can hear: compare the window's spectrogram against the
// reference's to see whether the audio actually lines up.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	"chromascan/pkg/chromascan/audio"
	"chromascan/pkg/logger"
)

const silenceRMS = 1e-4

func main() {
	inputDir := flag.String("in", "testdata", "directory of WAV files to render")
	outputDir := flag.String("out", "spectrograms", "directory for the generated PNGs")
	media := flag.String("media", "", "render a chunk of this media file instead of a WAV directory")
	offset := flag.Int("ss", 0, "chunk start in seconds (with -media)")
	duration := flag.Int("t", 0, "chunk length in seconds, 0 = to the end (with -media)")
	width := flag.Int("width", 2048, "image width in pixels")
	height := flag.Int("height", 512, "image height in pixels (also the FFT bin count)")
	flag.Parse()

	log := logger.GetLogger()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create %s: %v", *outputDir, err)
	}

	if *media != "" {
		wavPath, err := audio.ExtractChunkToFile(context.Background(), *media, *offset, *duration, *outputDir, audio.ExtractConfig{})
		if err != nil {
			log.Fatalf("Failed to extract %s: %v", *media, err)
		}
		defer os.Remove(wavPath)
		if err := render(wavPath, *outputDir, *width, *height); err != nil {
			log.Fatalf("Failed to render %s: %v", wavPath, err)
		}
		return
	}

	err := filepath.WalkDir(*inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".wav" {
			return nil
		}
		if err := render(path, *outputDir, *width, *height); err != nil {
			log.Warnf("Skipping %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Walking %s: %v", *inputDir, err)
	}
}

func render(path, outputDir string, width, height int) error {
	log := logger.GetLogger()

	samples, sampleRate, err := audio.ReadWavFile(path)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples")
	}
	if audio.RMS(samples) < silenceRMS {
		return fmt.Errorf("effectively silent, nothing to plot")
	}
	log.Infof("Rendering %s (%d samples at %d Hz)", path, len(samples), sampleRate)

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude, linear scale. LOG10 washes the image
	// out on quiet material.
	spectrogram.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(height),
		false, // RECTANGLE
		false, // DFT
		true,  // MAG
		false, // LOG10
	)

	outputPath := filepath.Join(outputDir, filepath.Base(path)+".png")
	if err := spectrogram.SavePng(img, outputPath); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", outputPath)
	return nil
}
