package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Debounce() != 750*time.Millisecond {
		t.Fatalf("expected 750ms default debounce, got %v", cfg.Debounce())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromPath(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DebounceMs != 750 {
		t.Fatalf("expected default debounce_ms 750, got %d", cfg.DebounceMs)
	}
	if cfg.AutosnapSeconds != 120 {
		t.Fatalf("expected default autosnap_seconds 120, got %d", cfg.AutosnapSeconds)
	}
}

func TestLoadFromPath_OverridesMergeOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := strings.Join([]string{
		"debounce_ms: 1500",
		"exclude_classes:",
		"  - Conky",
		"  - plank",
		"log_level: debug",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Debounce() != 1500*time.Millisecond {
		t.Fatalf("expected 1500ms debounce, got %v", cfg.Debounce())
	}
	if len(cfg.ExcludeClasses) != 2 || cfg.ExcludeClasses[0] != "Conky" {
		t.Fatalf("unexpected exclude_classes: %v", cfg.ExcludeClasses)
	}
	// Unset keys keep their defaults.
	if cfg.AutosnapSeconds != 120 {
		t.Fatalf("expected default autosnap_seconds, got %d", cfg.AutosnapSeconds)
	}
}

func TestLoadFromPath_RejectsInvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for invalid log_level")
	}
}

func TestLoadFromPath_RejectsNegativeDebounce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debounce_ms: -10\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for negative debounce_ms")
	}
}

func TestAutosnapInterval_ZeroDisables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("autosnap_seconds: 0\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AutosnapInterval() != 0 {
		t.Fatalf("expected disabled autosnap, got %v", cfg.AutosnapInterval())
	}
}
