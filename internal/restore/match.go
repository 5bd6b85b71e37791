package restore

import (
	"github.com/persistwin/persistwin/internal/snapshot"
)

// match pairs live windows with stored records. Priority per live window:
//
//  1. exact identity (process path + class + title)
//  2. process path + class, only when exactly one unconsumed record remains
//     for that pair (tolerates title drift without guessing)
//  3. no match, window is left untouched
//
// Each record is consumed by at most one live window, so a single saved slot
// is never applied twice. Windows are processed in enumeration order and
// records claimed first-match-wins.
func match(records []snapshot.Record, live []snapshot.Window) map[uint32]*snapshot.Record {
	consumed := make([]bool, len(records))

	exact := make(map[string][]int, len(records))
	pair := make(map[string][]int, len(records))
	for i, rec := range records {
		exact[rec.Identity.Key()] = append(exact[rec.Identity.Key()], i)
		pair[rec.Identity.PairKey()] = append(pair[rec.Identity.PairKey()], i)
	}

	claim := func(indices []int) int {
		for _, i := range indices {
			if !consumed[i] {
				consumed[i] = true
				return i
			}
		}
		return -1
	}

	matched := make(map[uint32]*snapshot.Record)
	unresolved := make([]snapshot.Window, 0, len(live))

	// First pass: exact matches take precedence over any pair fallback, even
	// across window ordering.
	for _, w := range live {
		if i := claim(exact[w.Identity.Key()]); i >= 0 {
			matched[w.ID] = &records[i]
			continue
		}
		unresolved = append(unresolved, w)
	}

	// Second pass: title-drift fallback.
	for _, w := range unresolved {
		candidates := 0
		last := -1
		for _, i := range pair[w.Identity.PairKey()] {
			if !consumed[i] {
				candidates++
				last = i
			}
		}
		if candidates == 1 {
			consumed[last] = true
			matched[w.ID] = &records[last]
		}
	}

	return matched
}
