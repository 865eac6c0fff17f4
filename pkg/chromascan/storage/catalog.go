// Package storage persists scan history to SQLite so past results can be
// reviewed without re-running a scan.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chromascan/pkg/models"
)

const DefaultDBFile = "chromascan.sqlite3"

var errCatalogNil = errors.New("catalog is nil")

// Scan is one completed scan run.
type Scan struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	SourcePath  string `gorm:"index:idx_scan_source"`
	DurationSec int
	WindowSec   int
	ThresholdPc float64 // match threshold as configured, 0-1
	MatchCount  int
	CreatedAt   time.Time
}

// Match is one detected occurrence belonging to a Scan.
type Match struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ScanID     string `gorm:"type:varchar(36);index:idx_match_scan"`
	Title      string
	Confidence float64
	OffsetSec  int
}

// Catalog wraps the SQLite scan-history database.
type Catalog struct {
	DB *gorm.DB
	db *sql.DB
}

// Open creates or opens the catalog database at dbPath, migrating the schema
// as needed.
func Open(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Scan{}, &Match{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Catalog{DB: db, db: sqlDB}, nil
}

func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RecordScan stores a completed scan and its matches in one transaction and
// returns the scan ID.
func (c *Catalog) RecordScan(sourcePath string, durationSec, windowSec int, threshold float64, matches []models.MatchCandidate) (string, error) {
	if c == nil || c.DB == nil {
		return "", errCatalogNil
	}

	scan := Scan{
		ID:          uuid.NewString(),
		SourcePath:  sourcePath,
		DurationSec: durationSec,
		WindowSec:   windowSec,
		ThresholdPc: threshold,
		MatchCount:  len(matches),
	}

	err := c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&scan).Error; err != nil {
			return fmt.Errorf("creating scan: %w", err)
		}
		if len(matches) == 0 {
			return nil
		}
		rows := make([]Match, len(matches))
		for i, m := range matches {
			rows[i] = Match{
				ScanID:     scan.ID,
				Title:      m.Title,
				Confidence: m.Confidence,
				OffsetSec:  m.OffsetSec,
			}
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("batch insert matches: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return scan.ID, nil
}

// ListScans returns past scans, newest first.
func (c *Catalog) ListScans() ([]Scan, error) {
	if c == nil || c.DB == nil {
		return nil, errCatalogNil
	}
	var scans []Scan
	if err := c.DB.Order("created_at DESC").Find(&scans).Error; err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return scans, nil
}

// MatchesForScan returns a scan's matches in source order.
func (c *Catalog) MatchesForScan(scanID string) ([]models.MatchCandidate, error) {
	if c == nil || c.DB == nil {
		return nil, errCatalogNil
	}
	var rows []Match
	if err := c.DB.Where("scan_id = ?", scanID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	out := make([]models.MatchCandidate, len(rows))
	for i, r := range rows {
		out[i] = models.MatchCandidate{Title: r.Title, Confidence: r.Confidence, OffsetSec: r.OffsetSec}
	}
	return out, nil
}

// DeleteScan removes a scan and its matches.
func (c *Catalog) DeleteScan(scanID string) error {
	if c == nil || c.DB == nil {
		return errCatalogNil
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scan_id = ?", scanID).Delete(&Match{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", scanID).Delete(&Scan{}).Error
	})
}
