package backtrack

import (
	"sort"
	"testing"

	"github.com/bioforge/fmap/fmindex"
)

func buildTestIndex(t *testing.T, ref string) *fmindex.Index {
	idx, err := fmindex.BuildForward([]fmindex.ReferenceSeq{{Name: "chr1", Bases: []byte(ref)}}, fmindex.BuildOptions{SampleRate: 2})
	if err != nil {
		t.Fatalf("BuildForward: %v", err)
	}
	return idx
}

func noThresholds(l int) Thresholds { return Thresholds{UnrevOff: l, Rev1Off: l, Rev2Off: l, Rev3Off: l} }

func allRevisitable(l int) Thresholds { return Thresholds{UnrevOff: 0, Rev1Off: l, Rev2Off: l, Rev3Off: l} }

func TestExactModeScenario(t *testing.T) {
	ref := "AAAAGATCGATCGATCGATCAAAA"
	read := "GATCGATCGATCGATC"
	idx := buildTestIndex(t, ref)

	var hits []Hit
	bt := New(idx, FuncSink(func(h Hit) { hits = append(hits, h) }), nil)
	p := Params{Thresholds: noThresholds(len(read)), MaxMismatches: 0}
	bases := []byte(read)
	quals := make([]uint8, len(read))

	outcome := bt.Run(0, '+', bases, quals, p)
	if outcome != Complete {
		t.Fatalf("expected Complete, got %v", outcome)
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly 1 hit, got %d: %+v", len(hits), hits)
	}
	if hits[0].RefOffset != 4 || len(hits[0].Mismatches) != 0 {
		t.Fatalf("expected (refOffset=4, no mismatches), got %+v", hits[0])
	}
}

func TestOneMismatchModeScenario(t *testing.T) {
	ref := "AAAAGATCGATCGATCGATCAAAA"
	read := "GATCGATCGATAGATC" // mismatch at 5'-index 11 (reference has C there)
	idx := buildTestIndex(t, ref)

	var hits []Hit
	bt := New(idx, FuncSink(func(h Hit) { hits = append(hits, h) }), nil)
	p := Params{Thresholds: allRevisitable(len(read)), MaxMismatches: 1}
	bases := []byte(read)
	quals := make([]uint8, len(read))

	bt.Run(0, '+', bases, quals, p)
	if len(hits) != 1 {
		t.Fatalf("expected exactly 1 hit, got %d: %+v", len(hits), hits)
	}
	if hits[0].RefOffset != 4 {
		t.Fatalf("expected refOffset=4, got %d", hits[0].RefOffset)
	}
	if len(hits[0].Mismatches) != 1 || hits[0].Mismatches[0] != 11 {
		t.Fatalf("expected mismatch at position 11, got %v", hits[0].Mismatches)
	}
}

func TestExactModeTwoOccurrences(t *testing.T) {
	ref := "AAAAGATCGAAAAAAAAAAAAAAAAGATCGAAAA"
	read := "GATCG"
	idx := buildTestIndex(t, ref)

	var offsets []int
	bt := New(idx, FuncSink(func(h Hit) { offsets = append(offsets, int(h.RefOffset)) }), nil)
	p := Params{Thresholds: noThresholds(len(read)), MaxMismatches: 0}
	bt.Run(0, '+', []byte(read), make([]uint8, len(read)), p)

	sort.Ints(offsets)
	if len(offsets) != 2 {
		t.Fatalf("expected 2 hits, got %d: %v", len(offsets), offsets)
	}
}

func TestOneHitStopsAtFirst(t *testing.T) {
	ref := "AAAAGATCGAAAAAAAAAAAAAAAAGATCGAAAA"
	read := "GATCG"
	idx := buildTestIndex(t, ref)

	var count int
	bt := New(idx, FuncSink(func(h Hit) { count++ }), nil)
	p := Params{Thresholds: noThresholds(len(read)), MaxMismatches: 0, OneHit: true}
	outcome := bt.Run(0, '+', []byte(read), make([]uint8, len(read)), p)

	if outcome != HitLimitReached {
		t.Fatalf("expected HitLimitReached, got %v", outcome)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 hit emitted, got %d", count)
	}
}

func TestNoMatchYieldsNoHits(t *testing.T) {
	idx := buildTestIndex(t, "AAAAGATCGATCGATCGATCAAAA")
	var hits []Hit
	bt := New(idx, FuncSink(func(h Hit) { hits = append(hits, h) }), nil)
	p := Params{Thresholds: noThresholds(4), MaxMismatches: 0}
	bt.Run(0, '+', []byte("TTTT"), make([]uint8, 4), p)
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestMutationNeutrality(t *testing.T) {
	idx := buildTestIndex(t, "AAAAGATCGATCGATCGATCAAAA")
	bt := New(idx, FuncSink(func(h Hit) {}), nil)
	bases := []byte("GATCGATCGATCGATC")
	original := append([]byte{}, bases...)

	p := Params{
		Thresholds:    allRevisitable(len(bases)),
		MaxMismatches: 1,
		Mutations:     []Mutation{{Pos: 2, Base: 'T'}},
	}
	bt.Run(0, '+', bases, make([]uint8, len(bases)), p)

	for i := range bases {
		if bases[i] != original[i] {
			t.Fatalf("read buffer not restored: got %q, want %q", bases, original)
		}
	}
}

func TestHalfAndHalfRequiresBothHalves(t *testing.T) {
	ref := "AAAAGATCGATCGATCGATCAAAA"
	idx := buildTestIndex(t, ref)

	// A single mismatch cannot satisfy half-and-half (needs >=1 in each half).
	read := "GATCGATCGATAGATC"
	var hits []Hit
	bt := New(idx, FuncSink(func(h Hit) { hits = append(hits, h) }), nil)
	p := Params{
		Thresholds:    allRevisitable(len(read)),
		MaxMismatches: 1,
		HalfAndHalf:   true,
		SeedLen:       len(read),
	}
	bt.Run(0, '+', []byte(read), make([]uint8, len(read)), p)
	if len(hits) != 0 {
		t.Fatalf("expected half-and-half to reject a single mismatch, got %d hits", len(hits))
	}
}
