// Package chromascan locates occurrences of known reference clips inside a
// long recording by cross-correlating Chromaprint fingerprints.
package chromascan

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"chromascan/pkg/chromascan/audio"
	"chromascan/pkg/chromascan/correlate"
	"chromascan/pkg/chromascan/fingerprint"
	"chromascan/pkg/logger"
	"chromascan/pkg/models"
)

type scanService struct {
	config *Config
	log    Logger
}

// NewService assembles a scanner from options. Without options it probes
// with ffprobe, fingerprints with fpcalc when installed (falling back to the
// native chroma fingerprinter), and keeps no history.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.WindowSec <= 0 || cfg.WindowStepSec <= 0 {
		return nil, fmt.Errorf("window %ds / step %ds: both must be positive", cfg.WindowSec, cfg.WindowStepSec)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Provider == nil {
		if fingerprint.FpcalcAvailable() {
			cfg.Provider = &fingerprint.FpcalcProvider{}
		} else {
			cfg.Logger.Warnf("fpcalc not found on PATH, using the native chroma fingerprinter")
			cfg.Provider = &fingerprint.ChromaProvider{}
		}
	}
	if cfg.Store == nil {
		cfg.Store = fingerprint.NewStore()
	}
	if cfg.Prober == nil {
		cfg.Prober = ProberFunc(audio.Duration)
	}

	return &scanService{config: cfg, log: cfg.Logger}, nil
}

// Scan slides a fixed window across the source recording and compares every
// window against every reference. Windows whose fingerprint cannot be
// computed are skipped; everything else runs to completion. Results come
// back in window order, references in directory order within a window.
func (s *scanService) Scan(ctx context.Context, sourcePath, referenceDir string) ([]models.MatchCandidate, error) {
	refs, err := s.config.Store.List(referenceDir)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no reference fingerprints found in %s", referenceDir)
	}
	s.log.Infof("Loaded %d reference fingerprints from %s", len(refs), referenceDir)

	duration, err := s.config.Prober.Duration(ctx, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", sourcePath, err)
	}

	window := s.config.WindowSec
	var offsets []int
	for offset := 0; offset <= duration-window; offset += s.config.WindowStepSec {
		offsets = append(offsets, offset)
	}
	if len(offsets) == 0 {
		s.log.Warnf("Source is shorter than one %ds window (%ds), nothing to scan", window, duration)
		return nil, nil
	}
	s.log.Infof("Scanning %s: %ds in %d windows of %ds", sourcePath, duration, len(offsets), window)

	windowFPs := s.fingerprintWindows(ctx, sourcePath, offsets)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Parallel map over (window, reference) pairs. Each pair writes its
	// verdict into its own slot, so no locking is needed and concatenating
	// the slots afterward restores the sequential ordering contract.
	corr := correlate.Correlator{MinOverlap: s.config.MinOverlap}
	slots := make([][]*models.MatchCandidate, len(offsets))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range offsets {
		if windowFPs[i] == nil {
			continue
		}
		slots[i] = make([]*models.MatchCandidate, len(refs))
		for j := range refs {
			i, j := i, j
			g.Go(func() error {
				slots[i][j] = s.comparePair(corr, windowFPs[i], refs[j], offsets[i])
				return nil
			})
		}
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []models.MatchCandidate
	for i := range slots {
		for _, candidate := range slots[i] {
			if candidate != nil {
				results = append(results, *candidate)
			}
		}
	}
	s.log.Infof("Scan finished: %d matches", len(results))

	if s.config.Catalog != nil {
		if _, err := s.config.Catalog.RecordScan(sourcePath, duration, window, s.config.Threshold, results); err != nil {
			s.log.Errorf("Failed to record scan history: %v", err)
		}
	}
	return results, nil
}

// fingerprintWindows computes the source fingerprint of every window with a
// bounded worker pool. A nil entry marks a window whose fingerprint failed;
// the scan continues without it.
func (s *scanService) fingerprintWindows(ctx context.Context, sourcePath string, offsets []int) []models.Fingerprint {
	fps := make([]models.Fingerprint, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, offset := range offsets {
		i, offset := i, offset
		g.Go(func() error {
			s.log.Debugf("Fingerprinting window at %ds", offset)
			fp, err := s.config.Provider.Fingerprint(gctx, sourcePath, offset, s.config.WindowSec)
			if err != nil {
				s.log.Warnf("Skipping window at %ds: %v", offset, err)
				return nil
			}
			fps[i] = fp
			return nil
		})
	}
	g.Wait()
	return fps
}

// comparePair sweeps one window against one reference and returns a
// candidate when the score profile clusters into a match, nil otherwise.
func (s *scanService) comparePair(corr correlate.Correlator, windowFP models.Fingerprint, ref models.Reference, windowOffsetSec int) *models.MatchCandidate {
	if len(windowFP) == 0 || len(ref.Fingerprint) == 0 {
		return nil
	}

	shortest := min(len(windowFP), len(ref.Fingerprint))
	spanToUse := min(s.config.SearchSpan, shortest-1)
	if spanToUse < s.config.MinOverlap {
		s.log.Debugf("Skipping %s at %ds: usable span %d below minimum overlap %d",
			ref.Title, windowOffsetSec, spanToUse, s.config.MinOverlap)
		return nil
	}

	profile, err := corr.Sweep(windowFP, ref.Fingerprint, spanToUse, s.config.SearchStep)
	if err != nil {
		// Unreachable with the clamp above; a failure here is a bug.
		s.log.Errorf("Sweep failed for %s at %ds: %v", ref.Title, windowOffsetSec, err)
		return nil
	}
	if !correlate.IsMatch(profile, s.config.Threshold, s.config.MinConsistentOffsets, s.config.MaxOffsetDeviation) {
		return nil
	}

	idx, frameOffset := correlate.BestOffset(profile)
	confidence := profile[idx].Score * 100.0
	s.log.Infof("Match: %s at %ds (%.2f%% at frame offset %d)", ref.Title, windowOffsetSec, confidence, frameOffset)
	return &models.MatchCandidate{
		Title:      ref.Title,
		Confidence: confidence,
		OffsetSec:  windowOffsetSec,
	}
}

// Fingerprint exposes the configured provider for the fingerprint and fetch
// commands.
func (s *scanService) Fingerprint(ctx context.Context, path string, offsetSec, durationSec int) (models.Fingerprint, error) {
	return s.config.Provider.Fingerprint(ctx, path, offsetSec, durationSec)
}

func (s *scanService) Close() error {
	if s.config.Catalog != nil {
		return s.config.Catalog.Close()
	}
	return nil
}
