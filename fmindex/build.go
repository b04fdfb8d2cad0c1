package fmindex

import (
	"fmt"

	"github.com/bioforge/fmap/fmindex/twobit"
	"github.com/twotwotwo/sorts"
)

// ReferenceSeq is one input sequence to BuildForward/BuildMirror.
type ReferenceSeq struct {
	Name string
	Bases []byte // ACGT only; Ns must be filtered or substituted upstream
}

// BuildOptions controls index construction.
type BuildOptions struct {
	SampleRate uint8 // offRate: sample every 1<<SampleRate suffix-array offsets
	NumCPUs    int
}

// DefaultBuildOptions mirrors the teacher's DefaultSearchOptions idiom:
// sane defaults a caller can override piecewise.
var DefaultBuildOptions = BuildOptions{SampleRate: 4, NumCPUs: 1}

// BuildForward constructs the forward FM-index over the concatenation
// of refs, in the order given.
func BuildForward(refs []ReferenceSeq, opt BuildOptions) (*Index, error) {
	return build(refs, opt, false)
}

// BuildMirror constructs the mirror FM-index over the reversal (not
// reverse-complement) of the concatenated reference, per spec.md §1.
func BuildMirror(refs []ReferenceSeq, opt BuildOptions) (*Index, error) {
	return build(refs, opt, true)
}

func build(refs []ReferenceSeq, opt BuildOptions, mirror bool) (*Index, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("fmindex: no reference sequences given")
	}
	if opt.SampleRate == 0 {
		opt.SampleRate = DefaultBuildOptions.SampleRate
	}

	infos := make([]RefSeqInfo, len(refs))
	var total uint64
	for i, r := range refs {
		infos[i] = RefSeqInfo{Name: r.Name, Start: total, Length: uint64(len(r.Bases))}
		total += uint64(len(r.Bases))
	}

	forwardConcat := make([]byte, 0, total)
	for _, r := range refs {
		forwardConcat = append(forwardConcat, r.Bases...)
	}

	text := forwardConcat
	if mirror {
		// The mirror index is built over the reversal of the whole
		// concatenated reference, so a suffix of the mirror text
		// corresponds to a prefix of the original read from its 3' end
		// (spec.md §4.1). RefSeqInfo below still records Start/Length
		// in forward orientation; Index.toForwardOffset translates a
		// resolved row's reversed-text offset back before any refTree
		// lookup, so callers of Resolve never see mirror-text offsets.
		text = make([]byte, 0, total)
		for i := len(refs) - 1; i >= 0; i-- {
			b := refs[i].Bases
			for j := len(b) - 1; j >= 0; j-- {
				text = append(text, b[j])
			}
		}
	}

	packedText, err := twobit.Pack(forwardConcat)
	if err != nil {
		return nil, fmt.Errorf("fmindex: packing reference text: %w", err)
	}

	syms := make([]byte, len(text)+1)
	for i, b := range text {
		s := byteToSym[b]
		if s == 0 {
			return nil, fmt.Errorf("fmindex: non-ACGT base %q at offset %d", b, i)
		}
		syms[i] = s
	}
	syms[len(text)] = symSentinel
	n := uint64(len(syms))

	sorts.MaxProcs = maxInt(1, opt.NumCPUs)
	sa := buildSuffixArray(syms)

	bwt := make([]byte, n)
	for i, saVal := range sa {
		if saVal == 0 {
			bwt[i] = symSentinel
		} else {
			bwt[i] = syms[saVal-1]
		}
	}

	var c [nSymbols]uint64
	var counts [nSymbols]uint64
	for _, s := range syms {
		counts[s]++
	}
	// C[c] = number of symbols strictly less than c (sentinel < A < C < G < T)
	var running uint64
	for s := 0; s < nSymbols; s++ {
		c[s] = running
		running += counts[s]
	}

	step := CheckpointInterval
	nCps := int(n)/step + 2
	checkpoints := make([][nSymbols]uint64, nCps)
	var cum [nSymbols]uint64
	for row := 0; row < int(n); row++ {
		if row%step == 0 {
			checkpoints[row/step] = cum
		}
		cum[bwt[row]]++
	}
	// full-length queries read checkpoints[n/step]; the loop above leaves
	// that entry unfilled when n is a multiple of step
	if int(n)%step == 0 {
		checkpoints[int(n)/step] = cum
	}

	stride := uint32(1) << opt.SampleRate
	sampled := make(map[uint64]uint32, n/uint64(stride)+1)
	for row, saVal := range sa {
		if uint32(saVal)%stride == 0 {
			sampled[uint64(row)] = uint32(saVal)
		}
	}
	// Guarantee the sentinel row (SA value n-1, i.e. the all-suffix row)
	// is always sampled so resolveRow always terminates within one
	// stride.
	for row, saVal := range sa {
		if saVal == n-1 {
			sampled[uint64(row)] = uint32(saVal)
		}
	}

	idx := &Index{
		n:              n,
		bwt:            bwt,
		c:              c,
		checkpoints:    checkpoints,
		checkpointStep: step,
		sampleStride:   stride,
		sampled:        sampled,
		refs:           infos,
		text:           packedText,
		mirror:         mirror,
		resident:       true,
	}
	idx.refTree = buildRefTree(infos)
	return idx, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// buildSuffixArray runs the classic O(n log^2 n) prefix-doubling
// construction, sorted in parallel with the teacher's dependency for
// large-slice sorting instead of the stdlib's boxed sort.Sort.
func buildSuffixArray(syms []byte) []uint64 {
	n := len(syms)
	sa := make([]uint64, n)
	rank := make([]int64, n)
	tmp := make([]int64, n)
	for i := 0; i < n; i++ {
		sa[i] = uint64(i)
		rank[i] = int64(syms[i])
	}

	for k := 1; ; k *= 2 {
		sortable := &saSortable{sa: sa, rank: rank, k: k, n: n}
		sorts.Quicksort(sortable)

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			prevEqual := rank[sa[i-1]] == rank[sa[i]]
			pa, pb := int64(-1), int64(-1)
			if int(sa[i-1])+k < n {
				pa = rank[sa[i-1]+uint64(k)]
			}
			if int(sa[i])+k < n {
				pb = rank[sa[i]+uint64(k)]
			}
			if prevEqual && pa == pb {
				tmp[sa[i]] = tmp[sa[i-1]]
			} else {
				tmp[sa[i]] = tmp[sa[i-1]] + 1
			}
		}
		copy(rank, tmp)
		if int(rank[sa[n-1]]) == n-1 || k >= n {
			break
		}
	}
	return sa
}

type saSortable struct {
	sa   []uint64
	rank []int64
	k, n int
}

func (s *saSortable) Len() int      { return len(s.sa) }
func (s *saSortable) Swap(i, j int) { s.sa[i], s.sa[j] = s.sa[j], s.sa[i] }
func (s *saSortable) Less(i, j int) bool {
	a, b := s.sa[i], s.sa[j]
	if s.rank[a] != s.rank[b] {
		return s.rank[a] < s.rank[b]
	}
	ra, rb := int64(-1), int64(-1)
	if int(a)+s.k < s.n {
		ra = s.rank[a+uint64(s.k)]
	}
	if int(b)+s.k < s.n {
		rb = s.rank[b+uint64(s.k)]
	}
	return ra < rb
}
