// Package orchestrate implements the Phase Orchestrator of spec.md §4.4:
// the four search variants, each a sequence of phases that alternate
// between the forward and mirror FM-index, bridged by the
// Partial-Alignment Store and gated by the Completion Bitmap.
package orchestrate

import (
	"math/rand"

	"github.com/bioforge/fmap/backtrack"
	"github.com/bioforge/fmap/bitmap"
	"github.com/bioforge/fmap/config"
	"github.com/bioforge/fmap/fmindex"
	"github.com/bioforge/fmap/readsrc"
	"github.com/bioforge/fmap/seedstore"
)

// Orchestrator owns both FM-index handles (at most one resident at a
// time outside the seeded search's phase-2/3 handoff), the read source,
// the hit sink, the completion bitmap, and the partial-alignment store.
// It is the star-shaped center spec.md §9 describes: no back-pointers
// from any of its collaborators.
type Orchestrator struct {
	basename string
	fwd      *fmindex.Index
	mir      *fmindex.Index

	src   readsrc.Source
	sink  backtrack.Sink
	bm    *bitmap.Bitmap
	store *seedstore.Store
	cfg   *config.Config

	backtrackers []*backtrack.Backtracker // one per worker, indexed by workerID
}

// New constructs an Orchestrator. basename names the on-disk forward
// index (basename.1/.2.ebwt); the mirror index is loaded lazily from
// basename.rev.1/.2.ebwt only when a phase needs it.
func New(basename string, src readsrc.Source, sink backtrack.Sink, cfg *config.Config, capacityHint uint32) (*Orchestrator, error) {
	fwd, err := fmindex.Load(basename, false)
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		basename: basename,
		fwd:      fwd,
		src:      src,
		sink:     sink,
		bm:       bitmap.New(capacityHint),
		store:    seedstore.New(),
		cfg:      cfg,
	}
	o.backtrackers = make([]*backtrack.Backtracker, cfg.NThreads)
	return o, nil
}

// NewFromIndices builds an Orchestrator directly over already-resident
// indices, for tests and in-process pipelines that build indices on the
// fly rather than reading them from disk.
func NewFromIndices(fwd, mir *fmindex.Index, src readsrc.Source, sink backtrack.Sink, cfg *config.Config, capacityHint uint32) *Orchestrator {
	return &Orchestrator{
		fwd: fwd, mir: mir,
		src: src, sink: sink,
		bm:           bitmap.New(capacityHint),
		store:        seedstore.New(),
		cfg:          cfg,
		backtrackers: make([]*backtrack.Backtracker, cfg.NThreads),
	}
}

// ensureMirror loads the mirror index if it is not already resident.
func (o *Orchestrator) ensureMirror() error {
	if o.mir != nil && o.mir.Resident() {
		return nil
	}
	if o.basename == "" {
		return nil // test-constructed orchestrator: mirror supplied directly
	}
	mir, err := fmindex.Load(o.basename, true)
	if err != nil {
		return err
	}
	o.mir = mir
	return nil
}

// evictForward and evictMirror implement spec.md §4.1's load/evict
// boundary discipline: at most one large index resident per phase.
func (o *Orchestrator) evictForward() {
	if o.fwd != nil {
		o.fwd.Evict()
	}
}

func (o *Orchestrator) evictMirror() {
	if o.mir != nil {
		o.mir.Evict()
	}
}

func (o *Orchestrator) reloadForward() error {
	if o.fwd != nil && o.fwd.Resident() {
		return nil
	}
	if o.basename == "" {
		return nil
	}
	fwd, err := fmindex.Load(o.basename, false)
	if err != nil {
		return err
	}
	o.fwd = fwd
	return nil
}

// btFor returns the worker-local Backtracker bound to idx, one per
// workerID so concurrent workers never share frame stacks (spec.md
// §4.6). The frame-stack allocation survives phase-boundary switches.
func (o *Orchestrator) btFor(workerID int, idx *fmindex.Index) *backtrack.Backtracker {
	bt := o.backtrackers[workerID]
	if bt == nil {
		bt = backtrack.New(idx, o.sink, o.store)
		o.backtrackers[workerID] = bt
		return bt
	}
	bt.SetIndex(idx)
	return bt
}

// prngFor derives a deterministic per-worker PRNG for pick-one-random,
// seeded from the Config seed plus a phase offset, per spec.md §4.2.
func prngFor(seed int64, phase, workerID int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(phase)*1_000_003 + int64(workerID)))
}

// seedThresholds builds the Thresholds for an end-to-end/seeded search
// whose seed half-split is s5/s3, per spec.md §3.
func seedThresholds(l, s, restrictedFrom int, maxMM int) backtrack.Thresholds {
	// Positions before restrictedFrom are unrevisitable (cap 0); from
	// restrictedFrom to s the cap ramps by maxMM; beyond the seed the
	// non-seed tail is governed by the caller (end-to-end modes allow
	// the tail unrestricted, seeded mode doesn't extend past the seed
	// during seedling search).
	t := backtrack.Thresholds{UnrevOff: restrictedFrom}
	switch maxMM {
	case 1:
		t.Rev1Off, t.Rev2Off, t.Rev3Off = l, l, l
	case 2:
		t.Rev1Off, t.Rev2Off, t.Rev3Off = restrictedFrom, l, l
	case 3:
		t.Rev1Off, t.Rev2Off, t.Rev3Off = restrictedFrom, restrictedFrom, l
	default:
		t.Rev1Off, t.Rev2Off, t.Rev3Off = l, l, l
	}
	_ = s
	return t
}

// seedSplit computes s/s5/s3 per spec.md §3's "Seed partition": for a
// read of length L, s = min(L, seedLen); s5 = ceil(s/2); s3 = floor(s/2).
// A seedLen of 0 means "the whole read is the seed" -- the natural
// reading for end-to-end modes, which have no explicit seed-length knob.
func seedSplit(l, seedLen int) (s, s5, s3 int) {
	s = l
	if seedLen > 0 && seedLen < l {
		s = seedLen
	}
	s5 = (s + 1) / 2
	s3 = s / 2
	return
}

// markDone sets the completion bit for id only in oneHit mode. All-hits
// mode must let every later phase keep searching a read that already has
// a hit, since distinct genomic hits can have their mismatches fall in
// regions only a later phase searches; original_source/ebwt_search.cpp
// gates doneMask.set the same way (only under "oneHit && hit").
func (o *Orchestrator) markDone(id uint32) error {
	if !o.cfg.OneHit {
		return nil
	}
	return o.bm.Set(id)
}

// Bitmap exposes the completion bitmap for callers that want to inspect
// which reads ended a run unaligned (e.g. a stats command).
func (o *Orchestrator) Bitmap() *bitmap.Bitmap { return o.bm }

// Store exposes the partial-alignment store, mostly for tests.
func (o *Orchestrator) Store() *seedstore.Store { return o.store }
