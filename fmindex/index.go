// Package fmindex is the FM-Index Primitive of spec.md §4.1: a
// concrete forward/mirror BWT index exposing exactly the operations the
// Backtracker needs (Narrow, Initial, Resolve, Load, Evict). The spec
// treats this as an external, consumed primitive; a runnable module
// still needs a real one, so this package provides it, grounded on the
// SA/C/OCC construction of namsyvo-IVC's fmi.go and on
// original_source/ebwt_search.cpp's description of the on-disk layout.
package fmindex

import (
	"fmt"

	"github.com/bioforge/fmap/fmindex/twobit"
	"github.com/rdleal/intervalst/interval"
)

// symbol codes used internally; 0 is reserved for the end-of-text
// sentinel so C/OCC tables can treat it uniformly with A/C/G/T.
const (
	symSentinel = 0
	symA        = 1
	symC        = 2
	symG        = 3
	symT        = 4
	nSymbols    = 5
)

var byteToSym = func() [256]uint8 {
	var t [256]uint8
	t['A'] = symA
	t['C'] = symC
	t['G'] = symG
	t['T'] = symT
	return t
}()

var symToByte = [nSymbols]byte{'$', 'A', 'C', 'G', 'T'}

// RefSeqInfo describes one reference sequence within the concatenated
// text the index was built over.
type RefSeqInfo struct {
	Name   string
	Start  uint64 // global offset of base 0 of this ref
	Length uint64
}

// Index is one FM-index -- either the forward index over the reference,
// or the mirror index over the reversed reference (spec.md §1/§4.1).
// Both share this same representation; the Phase Orchestrator is
// responsible for presenting reads in the matching orientation.
type Index struct {
	n   uint64 // text length including the sentinel
	bwt []byte // one symbol code per row, nSymbols-valued

	c [nSymbols]uint64 // C[c] = number of symbols strictly less than c in the text

	checkpoints    [][nSymbols]uint64 // cumulative occurrence counts, one row per CheckpointInterval
	checkpointStep int

	sampleStride uint32            // 1 << SampleRate
	sampled      map[uint64]uint32 // SA row -> text offset, for sampled rows only

	refs    []RefSeqInfo
	refTree *interval.SearchTree[uint32, uint64] // [Start, Start+Length) -> index into refs

	text []byte // 2-bit-packed forward-oriented reference, for sanity-check builds only

	mirror bool // true if this index is over the reversed reference

	resident bool
}

// buildRefTree indexes refs by their [Start, Start+Length) global-offset
// span so globalToRef can look one up in O(log n) instead of scanning the
// reference table linearly -- the same interval-lookup shape LexicMap uses
// `rdleal/intervalst` for when chaining HSP clusters, applied here to a
// simpler non-overlapping partition.
func buildRefTree(refs []RefSeqInfo) *interval.SearchTree[uint32, uint64] {
	t := interval.NewSearchTree[uint32](func(a, b uint64) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	})
	for i, rs := range refs {
		t.Insert(rs.Start, rs.Start+rs.Length, uint32(i))
	}
	return t
}

// CheckpointInterval is the number of BWT rows between stored rank
// checkpoints, matching spec.md §6's "checkpointed rank tables".
const CheckpointInterval = 128

// Narrow implements the FM-index primitive contract of spec.md §4.1:
// given an interval matching read suffix R[i..] and a candidate base c,
// return the interval matching c.R[i..] (empty if c does not extend the
// match).
func (idx *Index) Narrow(top, bot uint64, c byte) (uint64, uint64) {
	sym := byteToSym[c]
	if sym == 0 {
		return 0, 0 // 'N' or anything not in {A,C,G,T} never extends a match
	}
	newTop := idx.c[sym] + idx.rank(sym, top)
	newBot := idx.c[sym] + idx.rank(sym, bot)
	return newTop, newBot
}

// Initial returns the interval matching a single base c.
func (idx *Index) Initial(c byte) (uint64, uint64) {
	return idx.Narrow(0, idx.n, c)
}

// rank returns the number of occurrences of symbol sym in bwt[0:i).
func (idx *Index) rank(sym uint8, i uint64) uint64 {
	if i == 0 {
		return 0
	}
	cpRow := i / uint64(idx.checkpointStep)
	base := idx.checkpoints[cpRow][sym]
	start := cpRow * uint64(idx.checkpointStep)
	var extra uint64
	for j := start; j < i; j++ {
		if idx.bwt[j] == sym {
			extra++
		}
	}
	return base + extra
}

// lf maps row i to the row whose suffix is one position further back in
// the text (the classic LF-mapping backward-search step).
func (idx *Index) lf(i uint64) uint64 {
	sym := idx.bwt[i]
	return idx.c[sym] + idx.rank(sym, i)
}

// Resolve maps every SA row within [top,bot) to (refID, refOffset) in
// forward reference coordinates, walking up to idx.sampleStride LF-steps
// per unsampled row, per spec.md §4.1. matchLen is the length of the
// matched window (the Backtracker's current depth): on a mirror index
// the row resolves to an offset into the reversed text, which this
// translates back to the forward coordinate system before consulting
// refs, since refTree's [Start, Start+Length) spans are always recorded
// in forward orientation (see build()).
func (idx *Index) Resolve(top, bot uint64, matchLen int) func(func(refID uint32, refOffset uint32) bool) {
	return func(yield func(refID uint32, refOffset uint32) bool) {
		for row := top; row < bot; row++ {
			textOffset, ok := idx.resolveRow(row)
			if !ok {
				continue // no sampled row within reach: corrupt index
			}
			global, ok := idx.toForwardOffset(textOffset, matchLen)
			if !ok {
				continue
			}
			refID, localOff, ok := idx.globalToRef(global)
			if !ok {
				continue
			}
			if !yield(refID, localOff) {
				return
			}
		}
	}
}

// toForwardOffset translates a resolved text offset into the forward
// (non-reversed) coordinate system the reference table is indexed by.
// On the forward index this is the identity; on the mirror index, a
// match of length matchLen at reversed-text offset p covers forward
// range [total-p-matchLen, total-p), so its start is total-p-matchLen.
func (idx *Index) toForwardOffset(textOffset uint64, matchLen int) (uint64, bool) {
	if !idx.mirror {
		return textOffset, true
	}
	total := idx.n - 1 // text length, sentinel excluded
	ml := uint64(matchLen)
	if textOffset+ml > total {
		return 0, false // corrupt/overlong match; can't translate
	}
	return total - textOffset - ml, true
}

func (idx *Index) resolveRow(row uint64) (uint64, bool) {
	steps := uint64(0)
	r := row
	for {
		if off, ok := idx.sampled[r]; ok {
			return uint64(off) + steps, true
		}
		if steps >= uint64(idx.sampleStride)+1 {
			// Defensive: every row is within one stride of a sampled
			// row by construction; this only fires on a corrupt index.
			return 0, false
		}
		r = idx.lf(r)
		steps++
	}
}

func (idx *Index) globalToRef(offset uint64) (uint32, uint32, bool) {
	refID, ok := idx.refTree.AnyIntersection(offset, offset+1)
	if !ok {
		return 0, 0, false
	}
	return refID, uint32(offset - idx.refs[refID].Start), true
}

// RefSeqInfos returns the reference table, in index order.
func (idx *Index) RefSeqInfos() []RefSeqInfo { return idx.refs }

// Mirror reports whether this is the mirror (reversed-reference) index.
func (idx *Index) Mirror() bool { return idx.mirror }

// Len returns the total indexed text length (sum of reference lengths
// plus one sentinel).
func (idx *Index) Len() uint64 { return idx.n }

// Evict releases the bulky in-memory tables, per spec.md §4.1. An
// evicted Index cannot search again; Load returns a fresh Index.
func (idx *Index) Evict() {
	idx.bwt = nil
	idx.checkpoints = nil
	idx.sampled = nil
	idx.text = nil
	idx.resident = false
}

// Resident reports whether this Index was built or loaded and has not
// been evicted since.
func (idx *Index) Resident() bool { return idx.resident }

// unpackAt is used by RefBaseAt to fetch a reference base directly from
// the packed text, bypassing the FM-index.
func unpackAt(packed []byte, i int) byte { return twobit.At(packed, i) }

func symbolName(sym uint8) byte {
	if int(sym) >= len(symToByte) {
		return '?'
	}
	return symToByte[sym]
}

// RefBaseAt returns the reference base at (refID, localOffset), read
// directly from the packed text rather than walked through the BWT. Used
// by the Backtracker's sanity-check builds to cross-check a resolved hit
// against the reference it claims to align to (spec.md §7 category 4).
// Returns 0 if this Index was not built with its packed text retained.
func (idx *Index) RefBaseAt(refID uint32, localOffset uint32) byte {
	if idx.text == nil || int(refID) >= len(idx.refs) {
		return 0
	}
	rs := idx.refs[refID]
	return unpackAt(idx.text, int(rs.Start+uint64(localOffset)))
}

// DescribeRow renders bwt[row] as its DNA letter (or the sentinel '$'),
// a small diagnostic used by sanity-check builds when a cross-check
// fails and the caller wants to log what the BWT actually held.
func (idx *Index) DescribeRow(row uint64) byte { return symbolName(idx.bwt[row]) }

// String is a small debugging aid; never used on the hot path.
func (idx *Index) String() string {
	kind := "forward"
	if idx.mirror {
		kind = "mirror"
	}
	return fmt.Sprintf("fmindex(%s, n=%d, refs=%d, resident=%v)", kind, idx.n, len(idx.refs), idx.resident)
}
