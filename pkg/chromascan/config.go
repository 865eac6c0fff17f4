package chromascan

import "runtime"

// Config carries the scan tuning knobs. Defaults match the values the
// original correlation sweep was tuned with.
type Config struct {
	WindowSec            int     // length of each source window, seconds
	WindowStepSec        int     // stride between windows, seconds
	SearchSpan           int     // maximum absolute frame offset swept
	SearchStep           int     // frame offset stride of the sweep
	MinOverlap           int     // minimum post-shift overlap, frames
	Threshold            float64 // minimum score counted as a high correlation
	MinConsistentOffsets int     // cluster size needed to declare a match
	MaxOffsetDeviation   int     // cluster width measured from its anchor
	Workers              int     // parallel fingerprint/compare tasks

	Logger   Logger
	Provider Provider
	Store    ReferenceLister
	Prober   Prober
	Catalog  Recorder
}

type Option func(*Config)

func WithWindow(seconds int) Option {
	return func(c *Config) { c.WindowSec = seconds }
}

func WithWindowStep(seconds int) Option {
	return func(c *Config) { c.WindowStepSec = seconds }
}

func WithSearchSpan(frames int) Option {
	return func(c *Config) { c.SearchSpan = frames }
}

func WithSearchStep(frames int) Option {
	return func(c *Config) { c.SearchStep = frames }
}

func WithMinOverlap(frames int) Option {
	return func(c *Config) { c.MinOverlap = frames }
}

func WithThreshold(threshold float64) Option {
	return func(c *Config) { c.Threshold = threshold }
}

func WithMinConsistentOffsets(n int) Option {
	return func(c *Config) { c.MinConsistentOffsets = n }
}

func WithMaxOffsetDeviation(frames int) Option {
	return func(c *Config) { c.MaxOffsetDeviation = frames }
}

func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

func WithLogger(log Logger) Option {
	return func(c *Config) { c.Logger = log }
}

func WithProvider(p Provider) Option {
	return func(c *Config) { c.Provider = p }
}

func WithStore(s ReferenceLister) Option {
	return func(c *Config) { c.Store = s }
}

func WithProber(p Prober) Option {
	return func(c *Config) { c.Prober = p }
}

// WithCatalog enables scan-history persistence. The service closes the
// catalog when it is closed.
func WithCatalog(r Recorder) Option {
	return func(c *Config) { c.Catalog = r }
}

func defaultConfig() *Config {
	return &Config{
		WindowSec:            500,
		WindowStepSec:        10,
		SearchSpan:           150,
		SearchStep:           10,
		MinOverlap:           20,
		Threshold:            0.60,
		MinConsistentOffsets: 1,
		MaxOffsetDeviation:   5,
		Workers:              runtime.NumCPU(),
	}
}
