package main

import (
	"fmt"
	"strings"

	"chromascan/pkg/models"
)

// formatTimestamp renders a second offset as MM:SS, growing to HH:MM:SS for
// offsets of an hour or more.
func formatTimestamp(offsetSec int) string {
	hours := offsetSec / 3600
	minutes := (offsetSec % 3600) / 60
	seconds := offsetSec % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// makeSonglist renders match candidates as a timestamped tracklist. A run of
// consecutive hits on the same reference (the same clip detected in several
// overlapping windows) collapses to its first occurrence.
func makeSonglist(found []models.MatchCandidate) string {
	var b strings.Builder
	lastTitle := ""
	for _, match := range found {
		title := strings.TrimSuffix(match.Title, ".mp3")
		if title == lastTitle {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s - %s", formatTimestamp(match.OffsetSec), title)
		lastTitle = title
	}
	return b.String()
}
