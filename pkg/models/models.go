package models

// Fingerprint is an ordered sequence of Chromaprint sub-fingerprints, one
// 32-bit word per fixed-duration audio frame. Fingerprints are read-only once
// produced and may be shared freely across goroutines.
type Fingerprint []uint32

// Reference is a known clip the scanner searches for, identified by the
// fingerprint file it was loaded from.
type Reference struct {
	Title       string // path relative to the reference dir, suffixes stripped
	Path        string // path of the fingerprint file
	Fingerprint Fingerprint
}

// MatchCandidate is one detected occurrence of a reference inside the source
// recording.
type MatchCandidate struct {
	Title      string  // reference title
	Confidence float64 // winning similarity score as a percentage (0-100)
	OffsetSec  int     // window start in the source, in seconds
}
