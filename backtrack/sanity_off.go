//go:build !fmap_sanity

package backtrack

import "github.com/bioforge/fmap/fmindex"

// sanityCheckHit is a no-op outside fmap_sanity builds; see sanity_on.go.
func sanityCheckHit(idx *fmindex.Index, bases []byte, depth int, refID, refOffset uint32, matchedRow uint64, wantMismatches int) {
}
