package runtimepath

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got == "" {
		t.Fatal("Dir() returned empty path")
	}

	uid := os.Getuid()
	runUser := fmt.Sprintf("/run/user/%d", uid)
	tmpFallback := fmt.Sprintf("/tmp/persistwin-runtime-%d", uid)
	if got != runUser && got != tmpFallback {
		t.Fatalf("Dir() = %q, want %q or %q", got, runUser, tmpFallback)
	}
}

func TestSocketPath_UnderRuntimeDir(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := SocketPath()
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if !strings.HasPrefix(got, td) {
		t.Fatalf("SocketPath() = %q, want prefix %q", got, td)
	}
	if !strings.HasSuffix(got, "persistwin.sock") {
		t.Fatalf("SocketPath() = %q, want persistwin.sock suffix", got)
	}
}

func TestPIDFilePath_UnderRuntimeDir(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := PIDFilePath()
	if err != nil {
		t.Fatalf("PIDFilePath() error: %v", err)
	}
	if !strings.HasPrefix(got, td) {
		t.Fatalf("PIDFilePath() = %q, want prefix %q", got, td)
	}
}
