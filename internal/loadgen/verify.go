package loadgen

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInconsistent is returned when the hot list disagrees with the
// acknowledged likes.
var ErrInconsistent = errors.New("hot list inconsistent")

// Verify checks hot against the acknowledged like counts in expected.
//
// The list must be ordered by likes, carry exactly the acknowledged count
// for every entry, and be the true head: no item left out may have more
// likes than the last entry.
func Verify(hot []Entry, expected map[string]int64, topN int) error {
	want := min(topN, len(expected))
	if len(hot) != want {
		return fmt.Errorf("%w: got %d entries, want %d", ErrInconsistent, len(hot), want)
	}

	listed := make(map[string]struct{}, len(hot))
	for i, e := range hot {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrInconsistent, i, e.Rank)
		}
		n, ok := expected[e.ItemID]
		if !ok {
			return fmt.Errorf("%w: unknown item %s", ErrInconsistent, e.ItemID)
		}
		if e.Likes != n {
			return fmt.Errorf("%w: item %s has %d likes, acknowledged %d", ErrInconsistent, e.ItemID, e.Likes, n)
		}
		if i > 0 && e.Likes > hot[i-1].Likes {
			return fmt.Errorf("%w: entry %d outranks entry %d", ErrInconsistent, i, i-1)
		}
		listed[e.ItemID] = struct{}{}
	}
	if len(hot) == 0 {
		return nil
	}

	floor := hot[len(hot)-1].Likes
	missing := make([]string, 0)
	for id, n := range expected {
		if _, ok := listed[id]; !ok && n > floor {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: items %v belong in the top %d", ErrInconsistent, missing, topN)
	}
	return nil
}
