package fmindex

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func naiveOffsets(text, pattern string) []int {
	var out []int
	for i := 0; i+len(pattern) <= len(text); i++ {
		if text[i:i+len(pattern)] == pattern {
			out = append(out, i)
		}
	}
	return out
}

func searchExact(idx *Index, pattern string) []int {
	top, bot := uint64(0), idx.n
	for i := len(pattern) - 1; i >= 0; i-- {
		top, bot = idx.Narrow(top, bot, pattern[i])
		if top >= bot {
			return nil
		}
	}
	var offs []int
	for refID, off := range idx.Resolve(top, bot, len(pattern)) {
		if refID != 0 {
			continue
		}
		offs = append(offs, int(off))
	}
	sort.Ints(offs)
	return offs
}

func TestBuildForwardExactSearch(t *testing.T) {
	text := "ACGTACGTGGCATACGTTT"
	idx, err := BuildForward([]ReferenceSeq{{Name: "chr1", Bases: []byte(text)}}, BuildOptions{SampleRate: 2})
	if err != nil {
		t.Fatalf("BuildForward: %v", err)
	}

	for _, pattern := range []string{"ACGT", "GGCAT", "TTT", "A", "CGTACGTGGCATACGTTT"} {
		got := searchExact(idx, pattern)
		want := naiveOffsets(text, pattern)
		if len(got) != len(want) {
			t.Fatalf("pattern %q: got %v, want %v", pattern, got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("pattern %q: got %v, want %v", pattern, got, want)
			}
		}
	}
}

func TestBuildForwardMissingPattern(t *testing.T) {
	idx, err := BuildForward([]ReferenceSeq{{Name: "chr1", Bases: []byte("ACGTACGT")}}, BuildOptions{SampleRate: 2})
	if err != nil {
		t.Fatalf("BuildForward: %v", err)
	}
	if got := searchExact(idx, "GGGG"); got != nil {
		t.Fatalf("expected no hits, got %v", got)
	}
}

func TestBuildMirrorIsReversed(t *testing.T) {
	text := "ACGTTTGGCA"
	fwd, err := BuildForward([]ReferenceSeq{{Name: "chr1", Bases: []byte(text)}}, BuildOptions{SampleRate: 1})
	if err != nil {
		t.Fatalf("BuildForward: %v", err)
	}
	mir, err := BuildMirror([]ReferenceSeq{{Name: "chr1", Bases: []byte(text)}}, BuildOptions{SampleRate: 1})
	if err != nil {
		t.Fatalf("BuildMirror: %v", err)
	}

	// A suffix of the reversed text is the reverse of a prefix of the
	// original, so searching for "GCA" (the reverse of the prefix "ACG")
	// in the mirror index should find a hit.
	if got := searchExact(mir, "GCA"); len(got) == 0 {
		t.Fatalf("expected a hit for reversed prefix in mirror index")
	}
	if fwd.Mirror() {
		t.Fatalf("forward index incorrectly flagged as mirror")
	}
	if !mir.Mirror() {
		t.Fatalf("mirror index not flagged as mirror")
	}
}

func TestBuildForwardRejectsNonACGT(t *testing.T) {
	_, err := BuildForward([]ReferenceSeq{{Name: "chr1", Bases: []byte("ACGTN")}}, BuildOptions{SampleRate: 1})
	if err == nil {
		t.Fatalf("expected an error for a non-ACGT base")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	text := "ACGTACGTGGCATACGTTTACGGGTTACA"
	idx, err := BuildForward([]ReferenceSeq{{Name: "chr1", Bases: []byte(text)}}, BuildOptions{SampleRate: 3})
	if err != nil {
		t.Fatalf("BuildForward: %v", err)
	}

	dir := t.TempDir()
	base := filepath.Join(dir, "testref")
	if err := idx.Save(base); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, suffix := range []string{suffixMain, suffixSample} {
		if _, err := os.Stat(base + suffix); err != nil {
			t.Fatalf("expected %s to exist: %v", base+suffix, err)
		}
	}

	idx2, err := Load(base, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, pattern := range []string{"ACGT", "GGCAT", "TTTACG"} {
		got := searchExact(idx2, pattern)
		want := searchExact(idx, pattern)
		if len(got) != len(want) {
			t.Fatalf("pattern %q: round-tripped index disagrees: got %v want %v", pattern, got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("pattern %q: round-tripped index disagrees: got %v want %v", pattern, got, want)
			}
		}
	}
}

func TestEvictClearsResidentTables(t *testing.T) {
	idx, err := BuildForward([]ReferenceSeq{{Name: "chr1", Bases: []byte("ACGTACGT")}}, BuildOptions{SampleRate: 1})
	if err != nil {
		t.Fatalf("BuildForward: %v", err)
	}
	if !idx.Resident() {
		t.Fatalf("freshly built index should be resident")
	}
	idx.Evict()
	if idx.Resident() {
		t.Fatalf("evicted index should not report resident")
	}
	if idx.bwt != nil || idx.checkpoints != nil || idx.sampled != nil {
		t.Fatalf("Evict did not release backing tables")
	}
}
