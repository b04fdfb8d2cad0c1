//go:build fmap_sanity

package backtrack

import (
	"fmt"

	"github.com/bioforge/fmap/fmindex"
	"github.com/shenwei356/kmers"
)

// sanityCheckHit recomputes a resolved hit's mismatch count directly
// against the packed reference text, bypassing the FM-index, and panics
// on disagreement (spec.md §7 category 4). Mirror-index hits are only
// reachable through here with idx.Mirror() true; the mirror-to-forward
// coordinate translation happens in the orchestrator, above this
// package, so there's no local way to re-derive the matched window's
// orientation and this check is skipped for them.
func sanityCheckHit(idx *fmindex.Index, bases []byte, depth int, refID, refOffset uint32, matchedRow uint64, wantMismatches int) {
	if idx.Mirror() {
		return
	}
	got := 0
	for j := 0; j < depth; j++ {
		refBase := idx.RefBaseAt(refID, refOffset+uint32(j))
		readBase := bases[j] // a full-depth forward-index match reads bases in order
		if refBase != readBase {
			got++
		}
	}
	if got != wantMismatches {
		panic(fmt.Sprintf("fmap: sanity check failed at ref %d offset %d: live mismatch count %d, recount %d (bwt row %d holds %q, read window %s)",
			refID, refOffset, wantMismatches, got, matchedRow, idx.DescribeRow(matchedRow), decodeWindow(bases[:depth])))
	}
}

// decodeWindow renders a read prefix through kmers.MustDecode for the
// sanity-check panic message, the same pack-then-decode round trip
// gen-masks.go uses to print a LexicHash mask.
func decodeWindow(bases []byte) string {
	if len(bases) > 32 {
		bases = bases[:32]
	}
	var code uint64
	for _, b := range bases {
		code <<= 2
		switch b {
		case 'C':
			code |= 1
		case 'G':
			code |= 2
		case 'T':
			code |= 3
		}
	}
	return kmers.MustDecode(code, len(bases))
}
