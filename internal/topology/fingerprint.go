package topology

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies a display topology. It is a pure function of the
// monitor set: enumeration order never affects it, while any change to
// monitor count, geometry, work area, DPI scale or primary assignment does.
// The zero value means "no topology".
type Fingerprint string

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f == ""
}

// Short returns an abbreviated form suitable for log output.
func (f Fingerprint) Short() string {
	if len(f) <= 8 {
		return string(f)
	}
	return string(f[:8])
}

// Compute derives the fingerprint for a set of monitors. Monitors are hashed
// in canonical order so permutations of the same set yield the same result.
// Returns ErrUnavailable for the empty set (the transient dummy-display state).
func Compute(monitors []Monitor) (Fingerprint, error) {
	if len(monitors) == 0 {
		return "", ErrUnavailable
	}

	h := xxhash.New()
	writeInt(h, int64(len(monitors)))
	for _, m := range canonical(monitors) {
		_, _ = h.WriteString(m.Name)
		_, _ = h.Write([]byte{0})
		writeRect(h, m.Rect)
		writeRect(h, m.WorkArea)
		writeInt(h, int64(math.Float64bits(m.Scale)))
		if m.Primary {
			writeInt(h, 1)
		} else {
			writeInt(h, 0)
		}
	}

	return Fingerprint(fmt.Sprintf("%016x", h.Sum64())), nil
}

func writeRect(h *xxhash.Digest, r Rect) {
	writeInt(h, int64(r.Left))
	writeInt(h, int64(r.Top))
	writeInt(h, int64(r.Right))
	writeInt(h, int64(r.Bottom))
}

func writeInt(h *xxhash.Digest, v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, _ = h.Write(buf[:])
}
