package store

import (
	"time"

	"github.com/persistwin/persistwin/internal/snapshot"
	"github.com/persistwin/persistwin/internal/topology"
)

// Layout is one stored topology layout header. The fingerprint is the primary
// key; the window rows attached to it are replaced wholesale on every commit.
type Layout struct {
	Fingerprint  string    `gorm:"primaryKey;size:64" json:"fingerprint"`
	MonitorCount int       `gorm:"not null" json:"monitor_count"`
	Description  string    `gorm:"not null" json:"description"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WindowRow is one persisted window record. The unique index over
// (fingerprint, process_path, class, title) enforces identity uniqueness
// within a layout.
type WindowRow struct {
	ID          uint   `gorm:"primaryKey"`
	Fingerprint string `gorm:"not null;uniqueIndex:idx_window_identity"`
	ProcessPath string `gorm:"not null;uniqueIndex:idx_window_identity"`
	Class       string `gorm:"uniqueIndex:idx_window_identity"`
	Title       string `gorm:"uniqueIndex:idx_window_identity"`

	Left   int `gorm:"not null"`
	Top    int `gorm:"not null"`
	Right  int `gorm:"not null"`
	Bottom int `gorm:"not null"`

	ShowState int     `gorm:"not null;default:0"`
	Monitor   string  `gorm:"not null"`
	OffsetX   int     `gorm:"not null"`
	OffsetY   int     `gorm:"not null"`
	Scale     float64 `gorm:"not null;default:1"`
}

// TableName keeps the table name singular-free and explicit.
func (WindowRow) TableName() string {
	return "window_records"
}

func rowFromRecord(fp topology.Fingerprint, rec snapshot.Record) WindowRow {
	return WindowRow{
		Fingerprint: string(fp),
		ProcessPath: rec.Identity.ProcessPath,
		Class:       rec.Identity.Class,
		Title:       rec.Identity.Title,
		Left:        rec.Rect.Left,
		Top:         rec.Rect.Top,
		Right:       rec.Rect.Right,
		Bottom:      rec.Rect.Bottom,
		ShowState:   int(rec.State),
		Monitor:     rec.Monitor,
		OffsetX:     rec.OffsetX,
		OffsetY:     rec.OffsetY,
		Scale:       rec.Scale,
	}
}

func (w WindowRow) record() snapshot.Record {
	return snapshot.Record{
		Identity: snapshot.Identity{
			ProcessPath: w.ProcessPath,
			Class:       w.Class,
			Title:       w.Title,
		},
		Rect: topology.Rect{
			Left:   w.Left,
			Top:    w.Top,
			Right:  w.Right,
			Bottom: w.Bottom,
		},
		State:   snapshot.ShowState(w.ShowState),
		Monitor: w.Monitor,
		OffsetX: w.OffsetX,
		OffsetY: w.OffsetY,
		Scale:   w.Scale,
	}
}
