package orchestrate

import (
	"github.com/bioforge/fmap/backtrack"
	"github.com/bioforge/fmap/readsrc"
	"github.com/bioforge/fmap/workerpool"
)

// Run1Mismatch implements spec.md §4.4's two-phase 1-mismatch search.
// Phase 1 searches rc before fw on the forward index -- the documented,
// if backwards-looking, order preserved from original_source (spec.md
// §9's second Open Question). rc hits found there are emitted at once and
// stay reported; a later exact fw hit marks the read done but does not
// retract them. Phase 2 covers the left-half case on the mirror index.
func (o *Orchestrator) Run1Mismatch() error {
	if err := o.reloadForward(); err != nil {
		return err
	}
	// rightHalf/leftHalf split the mismatch-bearing search the same way
	// endtoend.go's phases do: phase 1 (forward index) only revisits from
	// s5 on, phase 2 (mirror index) from s3 on, so the two phases'
	// backtracking budgets don't re-explore the same region from scratch.
	rightHalf := func(l int) backtrack.Thresholds {
		_, s5, _ := seedSplit(l, 0)
		return seedThresholds(l, s5, s5, 1)
	}
	leftHalf := func(l int) backtrack.Thresholds {
		_, s5, s3 := seedSplit(l, 0)
		return seedThresholds(l, s5, s3, 1)
	}

	err := workerpool.Run(o.src, o.cfg.NThreads, func(workerID int, r readsrc.Read) error {
		if len(r.Fw) < o.cfg.MinReadLen() {
			return nil
		}
		bt := o.btFor(workerID, o.fwd)
		p := backtrack.Params{Thresholds: rightHalf(len(r.Fw)), MaxMismatches: 1,
			OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		if o.cfg.OneHit {
			p.Rand = prngFor(o.cfg.Seed, 1, workerID)
		}

		var rcExactOnly bool
		if o.cfg.Revcomp {
			bt.Run(r.ID, '-', readsrc.ToBytes(r.Rc), r.QualRc, p)
			if bt.HitOccurred() {
				rcExactOnly = true // rc hits already emitted; the fw search below cannot withdraw them
			}
		}

		exact := backtrack.Thresholds{}
		pExact := backtrack.Params{Thresholds: exact, MaxMismatches: 0, OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		bt2 := o.btFor(workerID, o.fwd)
		bt2.Run(r.ID, '+', readsrc.ToBytes(r.Fw), r.QualFw, pExact)
		if bt2.HitOccurred() {
			return o.markDone(r.ID)
		}
		if rcExactOnly {
			return o.markDone(r.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := o.src.Reset(true); err != nil {
		return err
	}
	if err := o.ensureMirror(); err != nil {
		return err
	}
	o.evictForward()

	err = workerpool.Run(o.src, o.cfg.NThreads, func(workerID int, r readsrc.Read) error {
		if o.bm.Test(r.ID) || len(r.Fw) < o.cfg.MinReadLen() {
			return nil
		}
		bt := o.btFor(workerID, o.mir)
		p := backtrack.Params{Thresholds: leftHalf(len(r.Fw)), MaxMismatches: 1,
			OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		if o.cfg.OneHit {
			p.Rand = prngFor(o.cfg.Seed, 2, workerID)
		}

		bt.Run(r.ID, '+', readsrc.ToBytes(r.Fw), r.QualFw, p)
		if bt.HitOccurred() {
			return o.markDone(r.ID)
		}
		if o.cfg.Revcomp {
			bt2 := o.btFor(workerID, o.mir)
			bt2.Run(r.ID, '-', readsrc.ToBytes(r.Rc), r.QualRc, p)
			if bt2.HitOccurred() {
				return o.markDone(r.ID)
			}
		}
		return nil
	})
	return err
}
