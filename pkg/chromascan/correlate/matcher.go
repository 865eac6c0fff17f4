package correlate

import "sort"

// BestOffset returns the index and frame offset of the highest score in a
// profile. Ties keep the first occurrence: a later point replaces the
// current best only when strictly greater. Absent points never win. The
// profile must be non-empty.
func BestOffset(profile []ScorePoint) (index, offset int) {
	best := 0
	bestScore := -1.0
	if profile[0].Valid {
		bestScore = profile[0].Score
	}
	for i, p := range profile {
		if p.Valid && p.Score > bestScore {
			bestScore = p.Score
			best = i
		}
	}
	return best, profile[best].Offset
}

// IsMatch decides whether a score profile contains enough high scores at
// consistent offsets to call a match.
//
// Points at or above threshold are sorted by offset, then clusters are grown
// from each starting point: subsequent offsets join only while their distance
// from the cluster's first (anchor) offset stays within maxOffsetDeviation,
// and growth stops at the first offset that falls outside. The deviation is
// measured against the anchor, not the previous member. A cluster of at
// least minConsistentOffsets points is a match.
func IsMatch(profile []ScorePoint, threshold float64, minConsistentOffsets, maxOffsetDeviation int) bool {
	high := make([]ScorePoint, 0, len(profile))
	for _, p := range profile {
		if p.Valid && p.Score >= threshold {
			high = append(high, p)
		}
	}
	if len(high) < minConsistentOffsets {
		return false
	}

	sort.Slice(high, func(i, j int) bool { return high[i].Offset < high[j].Offset })

	for i := range high {
		anchor := high[i].Offset
		size := 1
		for j := i + 1; j < len(high); j++ {
			if high[j].Offset-anchor > maxOffsetDeviation {
				break
			}
			size++
		}
		if size >= minConsistentOffsets {
			return true
		}
	}
	return false
}
