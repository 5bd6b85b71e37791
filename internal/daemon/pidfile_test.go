package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquirePIDFile_WritesOwnPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")

	pf, err := AcquirePIDFile(path)
	if err != nil {
		t.Fatalf("AcquirePIDFile: %v", err)
	}
	defer pf.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("pid file content %q not a pid", data)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid file holds %d, want %d", pid, os.Getpid())
	}
}

func TestAcquirePIDFile_SecondInstanceRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")

	pf, err := AcquirePIDFile(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer pf.Release()

	// The file now names this (live) process.
	if _, err := AcquirePIDFile(path); err == nil {
		t.Fatal("expected second acquire to fail while holder is alive")
	}
}

func TestAcquirePIDFile_StaleFileReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")

	// A pid that cannot belong to a live process.
	if err := os.WriteFile(path, []byte("999999999\n"), 0600); err != nil {
		t.Fatalf("write stale pid: %v", err)
	}

	pf, err := AcquirePIDFile(path)
	if err != nil {
		t.Fatalf("expected stale pid file to be replaced, got %v", err)
	}
	pf.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("Release should remove the pid file")
	}
}

func TestAcquirePIDFile_ReclaimAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")

	pf, err := AcquirePIDFile(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	pf.Release()

	// The exclusive create succeeds again once the file is gone.
	pf2, err := AcquirePIDFile(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	pf2.Release()
}

func TestAcquirePIDFile_GarbageContentReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")

	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	pf, err := AcquirePIDFile(path)
	if err != nil {
		t.Fatalf("expected garbage pid file to be replaced, got %v", err)
	}
	pf.Release()
}
