package monitor

import (
	"errors"
	"fmt"

	"github.com/persistwin/persistwin/internal/topology"
)

// ErrChangeInProgress is returned by SnapshotNow while a topology change is
// being debounced. Mid-transition the window manager may have already
// collapsed windows onto the surviving monitors; committing that geometry
// would overwrite the incoming topology's stored layout with garbage.
var ErrChangeInProgress = errors.New("topology change in progress")

// NoLayoutError is returned by manual restore when the store holds nothing
// for the live topology.
type NoLayoutError struct {
	Fingerprint topology.Fingerprint
}

func (e *NoLayoutError) Error() string {
	return fmt.Sprintf("no stored layout for topology %s", e.Fingerprint.Short())
}
