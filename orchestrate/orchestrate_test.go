package orchestrate

import (
	"testing"

	"github.com/bioforge/fmap/backtrack"
	"github.com/bioforge/fmap/config"
	"github.com/bioforge/fmap/fmindex"
	"github.com/bioforge/fmap/readsrc"
)

func buildPair(t *testing.T, ref string) (*fmindex.Index, *fmindex.Index) {
	fwd, err := fmindex.BuildForward([]fmindex.ReferenceSeq{{Name: "chr1", Bases: []byte(ref)}}, fmindex.BuildOptions{SampleRate: 2})
	if err != nil {
		t.Fatalf("BuildForward: %v", err)
	}
	mir, err := fmindex.BuildMirror([]fmindex.ReferenceSeq{{Name: "chr1", Bases: []byte(ref)}}, fmindex.BuildOptions{SampleRate: 2})
	if err != nil {
		t.Fatalf("BuildMirror: %v", err)
	}
	return fwd, mir
}

func TestRunExactMarksBitmap(t *testing.T) {
	fwd, mir := buildPair(t, "AAAAGATCGATCGATCGATCAAAA")
	src := readsrc.NewLiteralSource([]string{"GATCGATCGATCGATC"}, readsrc.NMatchesNothing)

	var hits []backtrack.Hit
	sink := backtrack.FuncSink(func(h backtrack.Hit) { hits = append(hits, h) })

	cfg := &config.Config{Mode: config.ModeExact, NThreads: 1, Revcomp: true}
	o := NewFromIndices(fwd, mir, src, sink, cfg, 16)

	if err := o.RunExact(); err != nil {
		t.Fatalf("RunExact: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d: %+v", len(hits), hits)
	}
	if !o.Bitmap().Test(0) {
		t.Fatalf("expected read 0 marked done")
	}
}

func TestRunExactNoHitLeavesUnmarked(t *testing.T) {
	fwd, mir := buildPair(t, "AAAAGATCGATCGATCGATCAAAA")
	src := readsrc.NewLiteralSource([]string{"TTTTTTTTTTTTTTTT"}, readsrc.NMatchesNothing)

	sink := backtrack.FuncSink(func(h backtrack.Hit) {})
	cfg := &config.Config{Mode: config.ModeExact, NThreads: 1, Revcomp: true}
	o := NewFromIndices(fwd, mir, src, sink, cfg, 16)

	if err := o.RunExact(); err != nil {
		t.Fatalf("RunExact: %v", err)
	}
	if o.Bitmap().Test(0) {
		t.Fatalf("expected read 0 to remain unmarked")
	}
}

func TestRun1MismatchFindsRightHalfMismatch(t *testing.T) {
	ref := "AAAAGATCGATCGATCGATCAAAA"
	read := "GATCGATCGATAGATC" // mismatch at 5'-index 11
	fwd, mir := buildPair(t, ref)
	src := readsrc.NewLiteralSource([]string{read}, readsrc.NMatchesNothing)

	var hits []backtrack.Hit
	sink := backtrack.FuncSink(func(h backtrack.Hit) { hits = append(hits, h) })
	cfg := &config.Config{Mode: config.Mode1MM, NThreads: 1, Revcomp: true, OneHit: true}
	o := NewFromIndices(fwd, mir, src, sink, cfg, 16)

	if err := o.Run1Mismatch(); err != nil {
		t.Fatalf("Run1Mismatch: %v", err)
	}
	if len(hits) == 0 {
		t.Fatalf("expected at least one hit")
	}
	if !o.Bitmap().Test(0) {
		t.Fatalf("expected read 0 marked done")
	}
}

// TestRun1MismatchAllHitsEmitsBothPlacements pins the exact hit set (not
// just "non-empty") for all-hits mode: a read with two distinct 1-mismatch
// placements, neither an exact match anywhere, so the only way to find
// either one is phase 2's mismatch-bearing forward search -- phase 1 never
// attempts a mismatch on fw, only exact. Revcomp is off so rc never enters
// the picture. With the done-bit only set in oneHit mode, phase 2 actually
// runs for this read and both placements come back, with no duplicates.
func TestRun1MismatchAllHitsEmitsBothPlacements(t *testing.T) {
	filler := "TTTT"
	refA := "ACGTACCTACGTA" // read with position 6 flipped G->C
	refB := "ACGTACGTACGTG" // read with position 12 flipped A->G
	ref := filler + refA + filler + refB + filler
	read := "ACGTACGTACGTA"

	fwd, mir := buildPair(t, ref)
	src := readsrc.NewLiteralSource([]string{read}, readsrc.NMatchesNothing)

	var hits []backtrack.Hit
	sink := backtrack.FuncSink(func(h backtrack.Hit) { hits = append(hits, h) })
	cfg := &config.Config{Mode: config.Mode1MM, NThreads: 1, Revcomp: false}
	o := NewFromIndices(fwd, mir, src, sink, cfg, 16)

	if err := o.Run1Mismatch(); err != nil {
		t.Fatalf("Run1Mismatch: %v", err)
	}

	type placement struct {
		offset uint32
		mm     int
	}
	got := make(map[placement]int)
	for _, h := range hits {
		if h.Strand != '+' || len(h.Mismatches) != 1 {
			t.Fatalf("unexpected hit shape: %+v", h)
		}
		got[placement{h.RefOffset, h.Mismatches[0]}]++
	}
	want := map[placement]int{{4, 6}: 1, {21, 12}: 1}
	for p, n := range want {
		if got[p] != n {
			t.Fatalf("expected placement %+v exactly %d time(s), got %d (all hits: %+v)", p, n, got[p], hits)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("expected exactly %d distinct placements, got %d: %+v", len(want), len(got), hits)
	}
	if o.Bitmap().Test(0) {
		t.Fatalf("all-hits mode must never mark the completion bit")
	}
}
