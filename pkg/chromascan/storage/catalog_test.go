package storage

import (
	"path/filepath"
	"testing"

	"chromascan/pkg/models"
)

func setupCatalog(t *testing.T) *Catalog {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test_chromascan.sqlite3")
	catalog, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open catalog: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })
	return catalog
}

func TestRecordAndListScans(t *testing.T) {
	catalog := setupCatalog(t)

	matches := []models.MatchCandidate{
		{Title: "intro-theme", Confidence: 87.5, OffsetSec: 120},
		{Title: "outro-theme", Confidence: 91.0, OffsetSec: 3600},
	}
	scanID, err := catalog.RecordScan("/media/show.mp4", 4000, 500, 0.60, matches)
	if err != nil {
		t.Fatalf("RecordScan failed: %v", err)
	}
	if scanID == "" {
		t.Fatal("expected a non-empty scan ID")
	}

	scans, err := catalog.ListScans()
	if err != nil {
		t.Fatalf("ListScans failed: %v", err)
	}
	if len(scans) != 1 {
		t.Fatalf("got %d scans, expected 1", len(scans))
	}
	if scans[0].MatchCount != 2 {
		t.Errorf("MatchCount = %d, expected 2", scans[0].MatchCount)
	}
	if scans[0].SourcePath != "/media/show.mp4" {
		t.Errorf("SourcePath = %q", scans[0].SourcePath)
	}

	got, err := catalog.MatchesForScan(scanID)
	if err != nil {
		t.Fatalf("MatchesForScan failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, expected 2", len(got))
	}
	// Insertion order must survive the round trip.
	if got[0].Title != "intro-theme" || got[1].Title != "outro-theme" {
		t.Errorf("matches out of order: %+v", got)
	}
	if got[0].Confidence != 87.5 || got[0].OffsetSec != 120 {
		t.Errorf("first match = %+v", got[0])
	}
}

func TestRecordScanWithoutMatches(t *testing.T) {
	catalog := setupCatalog(t)

	scanID, err := catalog.RecordScan("/media/empty.mp4", 600, 500, 0.60, nil)
	if err != nil {
		t.Fatalf("RecordScan failed: %v", err)
	}
	got, err := catalog.MatchesForScan(scanID)
	if err != nil {
		t.Fatalf("MatchesForScan failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d matches, expected 0", len(got))
	}
}

func TestDeleteScan(t *testing.T) {
	catalog := setupCatalog(t)

	scanID, err := catalog.RecordScan("/media/show.mp4", 4000, 500, 0.60, []models.MatchCandidate{
		{Title: "theme", Confidence: 80, OffsetSec: 10},
	})
	if err != nil {
		t.Fatalf("RecordScan failed: %v", err)
	}
	if err := catalog.DeleteScan(scanID); err != nil {
		t.Fatalf("DeleteScan failed: %v", err)
	}

	scans, err := catalog.ListScans()
	if err != nil {
		t.Fatalf("ListScans failed: %v", err)
	}
	if len(scans) != 0 {
		t.Errorf("got %d scans after delete, expected 0", len(scans))
	}
	matches, err := catalog.MatchesForScan(scanID)
	if err != nil {
		t.Fatalf("MatchesForScan failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches after delete, expected 0", len(matches))
	}
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil catalog = %v, expected nil", err)
	}
	if _, err := c.RecordScan("x", 0, 0, 0, nil); err == nil {
		t.Error("expected an error from RecordScan on nil catalog")
	}
}
