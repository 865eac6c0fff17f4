package chromascan

import (
	"context"

	"chromascan/pkg/models"
)

// Service is the public surface of the scanner.
type Service interface {
	// Scan searches sourcePath for every reference fingerprint in
	// referenceDir and returns the detected occurrences in window order.
	Scan(ctx context.Context, sourcePath, referenceDir string) ([]models.MatchCandidate, error)
	// Fingerprint computes the fingerprint of a slice of a media file.
	// durationSec 0 means to the end of the file.
	Fingerprint(ctx context.Context, path string, offsetSec, durationSec int) (models.Fingerprint, error)
	Close() error
}

// Provider computes fingerprints of media file slices. Implementations live
// in pkg/chromascan/fingerprint.
type Provider interface {
	Fingerprint(ctx context.Context, path string, offsetSec, durationSec int) (models.Fingerprint, error)
}

// ReferenceLister loads the reference fingerprints to search for.
type ReferenceLister interface {
	List(dir string) ([]models.Reference, error)
}

// Prober reports the playable duration of a media file in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (int, error)
}

// ProberFunc adapts a plain function to the Prober interface.
type ProberFunc func(ctx context.Context, path string) (int, error)

func (f ProberFunc) Duration(ctx context.Context, path string) (int, error) {
	return f(ctx, path)
}

// Recorder persists completed scans. *storage.Catalog implements it.
type Recorder interface {
	RecordScan(sourcePath string, durationSec, windowSec int, threshold float64, matches []models.MatchCandidate) (string, error)
	Close() error
}

// Logger is the logging surface the service needs; pkg/logger satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
