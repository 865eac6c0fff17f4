package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"chromascan/pkg/utils"
)

// ExtractConfig controls the PCM encoding of extracted chunks.
type ExtractConfig struct {
	SampleRate int
	Channels   int
}

func (c *ExtractConfig) defaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 44100
	}
	if c.Channels == 0 {
		c.Channels = 2
	}
}

func chunkArgs(inputPath string, offsetSec, durationSec int, cfg ExtractConfig) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if offsetSec > 0 {
		args = append(args, "-ss", strconv.Itoa(offsetSec))
	}
	if durationSec > 0 {
		args = append(args, "-t", strconv.Itoa(durationSec))
	}
	return append(args,
		"-i", inputPath,
		"-f", "wav",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
	)
}

// ExtractChunk decodes [offsetSec, offsetSec+durationSec) of a media file to
// WAV bytes on ffmpeg's stdout. A durationSec of 0 decodes to the end of the
// file.
func ExtractChunk(ctx context.Context, inputPath string, offsetSec, durationSec int, cfg ExtractConfig) ([]byte, error) {
	cfg.defaults()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}

	args := append(chunkArgs(inputPath, offsetSec, durationSec, cfg), "-")
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg failed: %v (%s)", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// ExtractChunkToFile decodes a chunk into a WAV file under outputDir and
// returns its path. The caller owns the file.
func ExtractChunkToFile(ctx context.Context, inputPath string, offsetSec, durationSec int, outputDir string, cfg ExtractConfig) (string, error) {
	cfg.defaults()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := filepath.Base(inputPath)
	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s.%d.wav", base, offsetSec))
	tmpPath := outputPath + ".tmp"
	defer os.Remove(tmpPath)

	args := append([]string{"-y"}, chunkArgs(inputPath, offsetSec, durationSec, cfg)...)
	args = append(args, tmpPath)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, bytes.TrimSpace(out))
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}
