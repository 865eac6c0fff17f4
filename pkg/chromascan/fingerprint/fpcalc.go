// Package fingerprint produces and loads Chromaprint-style fingerprints:
// ordered sequences of 32-bit sub-fingerprints, one per audio frame.
package fingerprint

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"chromascan/pkg/chromascan/audio"
	"chromascan/pkg/models"
)

const fingerprintKey = "FINGERPRINT="

// ParseRaw extracts the fingerprint from fpcalc -raw output (or a saved
// fingerprint file): everything after the FINGERPRINT= marker, parsed as
// comma-separated 32-bit integers. fpcalc prints signed values; they are
// reinterpreted as unsigned words.
func ParseRaw(content string) (models.Fingerprint, error) {
	idx := strings.Index(content, fingerprintKey)
	if idx == -1 {
		return nil, fmt.Errorf("fingerprint not found in fpcalc output")
	}
	payload := strings.TrimSpace(content[idx+len(fingerprintKey):])
	if payload == "" {
		return nil, fmt.Errorf("fingerprint payload is empty")
	}

	tokens := strings.Split(payload, ",")
	fp := make(models.Fingerprint, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fingerprint value %q: %w", tok, err)
		}
		fp = append(fp, uint32(v))
	}
	if len(fp) == 0 {
		return nil, fmt.Errorf("fingerprint payload is empty")
	}
	return fp, nil
}

// FormatRaw renders a fingerprint in the fpcalc -raw text form so saved
// reference files round-trip through ParseRaw.
func FormatRaw(fp models.Fingerprint, durationSec int) string {
	tokens := make([]string, len(fp))
	for i, v := range fp {
		tokens[i] = strconv.FormatUint(uint64(v), 10)
	}
	return fmt.Sprintf("DURATION=%d\n%s%s\n", durationSec, fingerprintKey, strings.Join(tokens, ","))
}

// WriteFile saves a fingerprint next to the reference clips so later scans
// skip the fpcalc run.
func WriteFile(path string, fp models.Fingerprint, durationSec int) error {
	return os.WriteFile(path, []byte(FormatRaw(fp, durationSec)), 0644)
}

// FpcalcAvailable reports whether the fpcalc binary is on PATH.
func FpcalcAvailable() bool {
	_, err := exec.LookPath("fpcalc")
	return err == nil
}

// FpcalcProvider fingerprints media files by piping ffmpeg-extracted WAV
// chunks into Chromaprint's fpcalc tool.
type FpcalcProvider struct {
	Extract audio.ExtractConfig
}

// Fingerprint computes the fingerprint of [offsetSec, offsetSec+durationSec)
// of a media file. durationSec 0 means to the end of the file.
func (p *FpcalcProvider) Fingerprint(ctx context.Context, path string, offsetSec, durationSec int) (models.Fingerprint, error) {
	chunk, err := audio.ExtractChunk(ctx, path, offsetSec, durationSec, p.Extract)
	if err != nil {
		return nil, fmt.Errorf("extracting audio chunk: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "fpcalc", "-raw", "-")
	cmd.Stdin = bytes.NewReader(chunk)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("fpcalc failed: %v (%s)", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return ParseRaw(stdout.String())
}
