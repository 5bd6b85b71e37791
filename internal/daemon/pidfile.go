package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile is the daemon's single-instance guard. Two monitors fighting over
// the same windows would corrupt each other's snapshots, so the second
// instance must refuse to start.
type PIDFile struct {
	path string
}

// AcquirePIDFile claims the lock file at path. Creation is exclusive, so two
// daemons racing for the same file cannot both win. If the file already
// exists and names a live process, acquisition fails; a stale file left by a
// crashed daemon is removed and the claim retried.
func AcquirePIDFile(path string) (*PIDFile, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			if _, werr := fmt.Fprintf(f, "%d\n", os.Getpid()); werr != nil {
				f.Close()
				os.Remove(path)
				return nil, fmt.Errorf("failed to write pid file: %w", werr)
			}
			if cerr := f.Close(); cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("failed to write pid file: %w", cerr)
			}
			return &PIDFile{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create pid file: %w", err)
		}

		data, rerr := os.ReadFile(path)
		if rerr == nil {
			if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil {
				if processAlive(pid) {
					return nil, fmt.Errorf("daemon already running (pid %d)", pid)
				}
			}
		}

		// Stale or unreadable: remove and retry the exclusive create. Another
		// instance may beat us to it; the second attempt will see it alive.
		os.Remove(path)
	}
	return nil, fmt.Errorf("failed to claim pid file %s", path)
}

// Release removes the lock file. Only the owning process should call this.
func (p *PIDFile) Release() {
	os.Remove(p.path)
}

// processAlive reports whether pid names a live process we can signal.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return err == syscall.EPERM
}
