// Package store persists per-topology window layouts in SQLite. Layouts are
// keyed by topology fingerprint and replaced wholesale on every commit;
// nothing is ever deleted automatically.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/persistwin/persistwin/internal/snapshot"
	"github.com/persistwin/persistwin/internal/topology"
)

const (
	defaultDBName = "persistwin.db"
	defaultDBDir  = ".config/persistwin"
)

// Store is the durable position store.
type Store struct {
	db *gorm.DB
}

// DefaultPath returns the default database location, creating the directory
// if needed.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	dbDir := filepath.Join(homeDir, defaultDBDir)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}

	return filepath.Join(dbDir, defaultDBName), nil
}

// Open opens (or creates) the database at dbPath and migrates the schema.
// An empty path selects the default location.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		var err error
		dbPath, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.AutoMigrate(&Layout{}, &WindowRow{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database schema")
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}

// UpsertLayout transactionally replaces the stored layout for the fingerprint:
// all previous window rows are dropped and the new set inserted, so a partial
// write never survives.
func (s *Store) UpsertLayout(fp topology.Fingerprint, monitors []topology.Monitor, records []snapshot.Record) error {
	if fp.IsZero() {
		return errors.New("refusing to store layout without a fingerprint")
	}

	layout := Layout{
		Fingerprint:  string(fp),
		MonitorCount: len(monitors),
		Description:  describeMonitors(monitors),
	}

	rows := make([]WindowRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rowFromRecord(fp, rec))
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&layout).Error; err != nil {
			return err
		}
		if err := tx.Where("fingerprint = ?", string(fp)).Delete(&WindowRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to upsert layout")
	}
	return nil
}

// GetLayout returns the most recently committed layout for the fingerprint.
// found is false when the topology has never been seen; an empty layout for a
// known topology returns (nil-or-empty, true, nil).
func (s *Store) GetLayout(fp topology.Fingerprint) ([]snapshot.Record, bool, error) {
	var layout Layout
	result := s.db.First(&layout, "fingerprint = ?", string(fp))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(result.Error, "failed to read layout")
	}

	var rows []WindowRow
	if err := s.db.Where("fingerprint = ?", string(fp)).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, false, errors.Wrap(err, "failed to read window records")
	}

	records := make([]snapshot.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, true, nil
}

// LayoutInfo summarizes one stored layout for listing.
type LayoutInfo struct {
	Fingerprint string    `json:"fingerprint"`
	Description string    `json:"description"`
	WindowCount int       `json:"window_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListLayouts returns all stored layouts, most recently updated first.
func (s *Store) ListLayouts() ([]LayoutInfo, error) {
	var layouts []Layout
	if err := s.db.Order("updated_at DESC").Find(&layouts).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list layouts")
	}

	infos := make([]LayoutInfo, 0, len(layouts))
	for _, l := range layouts {
		var count int64
		if err := s.db.Model(&WindowRow{}).Where("fingerprint = ?", l.Fingerprint).Count(&count).Error; err != nil {
			return nil, errors.Wrap(err, "failed to count window records")
		}
		infos = append(infos, LayoutInfo{
			Fingerprint: l.Fingerprint,
			Description: l.Description,
			WindowCount: int(count),
			UpdatedAt:   l.UpdatedAt,
		})
	}
	return infos, nil
}

// PruneLayout deletes one stored layout and its window records. Pruning is
// only ever an explicit operation; the daemon never does this on its own.
func (s *Store) PruneLayout(fp topology.Fingerprint) (bool, error) {
	found := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&Layout{}, "fingerprint = ?", string(fp))
		if result.Error != nil {
			return result.Error
		}
		found = result.RowsAffected > 0
		return tx.Where("fingerprint = ?", string(fp)).Delete(&WindowRow{}).Error
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to prune layout")
	}
	return found, nil
}

func describeMonitors(monitors []topology.Monitor) string {
	parts := make([]string, 0, len(monitors))
	for _, m := range monitors {
		parts = append(parts, fmt.Sprintf("%s %s", m.Name, m.Rect))
	}
	return strings.Join(parts, ", ")
}
