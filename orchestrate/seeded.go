package orchestrate

import (
	"github.com/bioforge/fmap/backtrack"
	"github.com/bioforge/fmap/readsrc"
	"github.com/bioforge/fmap/seedstore"
	"github.com/bioforge/fmap/workerpool"
)

func seedlingMutations(sl seedstore.Seedling) []backtrack.Mutation {
	n := sl.NumMutations()
	out := make([]backtrack.Mutation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, backtrack.Mutation{Pos: int(sl.Pos[i]), Base: sl.Char[i]})
	}
	return out
}

// RunSeeded implements spec.md §4.4's four-phase maq-like search:
// quality-weighted pruning throughout, seedling hand-off bridging
// phases 2->3 and 3->4.
func (o *Orchestrator) RunSeeded() error {
	seedLen := o.cfg.SeedLen
	maxMM := o.cfg.SeedMms
	qualThresh := o.cfg.QualThresh

	rightHalf := func(l int) backtrack.Thresholds {
		_, s5, _ := seedSplit(l, seedLen)
		t := seedThresholds(l, s5, s5, maxMM)
		return t
	}
	leftHalf := func(l int) backtrack.Thresholds {
		_, _, s3 := seedSplit(l, seedLen)
		_, s5, _ := seedSplit(l, seedLen)
		return seedThresholds(l, s5, s3, maxMM)
	}

	// Phase 1 (forward index): exact fw; else <=seedMms mismatches on rc,
	// right half, quality-weighted.
	if err := o.reloadForward(); err != nil {
		return err
	}
	err := workerpool.Run(o.src, o.cfg.NThreads, func(workerID int, r readsrc.Read) error {
		l := len(r.Fw)
		if l < o.cfg.MinReadLen() {
			return nil
		}
		bt := o.btFor(workerID, o.fwd)
		exactP := backtrack.Params{MaxMismatches: 0, OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		bt.Run(r.ID, '+', readsrc.ToBytes(r.Fw), r.QualFw, exactP)
		if bt.HitOccurred() {
			return o.markDone(r.ID)
		}

		p := backtrack.Params{Thresholds: rightHalf(l), MaxMismatches: maxMM,
			ConsiderQuals: true, QualThresh: qualThresh,
			OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		if o.cfg.OneHit {
			p.Rand = prngFor(o.cfg.Seed, 1, workerID)
		}
		bt2 := o.btFor(workerID, o.fwd)
		bt2.Run(r.ID, '-', readsrc.ToBytes(r.Rc), r.QualRc, p)
		if bt2.HitOccurred() {
			return o.markDone(r.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Phase 2 (mirror index): fw <=seedMms right half (covers 1F/2F/3F);
	// collect rc left-half seedlings.
	if err := o.src.Reset(true); err != nil {
		return err
	}
	if err := o.ensureMirror(); err != nil {
		return err
	}
	o.evictForward()

	err = workerpool.Run(o.src, o.cfg.NThreads, func(workerID int, r readsrc.Read) error {
		if o.bm.Test(r.ID) {
			return nil
		}
		l := len(r.Fw)
		if l < o.cfg.MinReadLen() {
			return nil
		}
		p := backtrack.Params{Thresholds: rightHalf(l), MaxMismatches: maxMM,
			ConsiderQuals: true, QualThresh: qualThresh,
			OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		if o.cfg.OneHit {
			p.Rand = prngFor(o.cfg.Seed, 2, workerID)
		}
		bt := o.btFor(workerID, o.mir)
		bt.Run(r.ID, '+', readsrc.ToBytes(r.Fw), r.QualFw, p)
		if bt.HitOccurred() {
			return o.markDone(r.ID)
		}

		seedP := backtrack.Params{Thresholds: leftHalf(l), MaxMismatches: maxMM,
			ConsiderQuals: true, QualThresh: qualThresh, SeedLen: seedLen,
			ReportSeedlings: 3, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		bt2 := o.btFor(workerID, o.mir)
		bt2.Run(r.ID, '-', readsrc.ToBytes(r.Rc), r.QualRc, seedP)
		return nil
	})
	if err != nil {
		return err
	}

	// Phase 3 (forward index): extend phase-2 seedlings to full rc
	// alignments; half-and-half on rc; collect fw left-half seedlings.
	if err := o.src.Reset(false); err != nil {
		return err
	}
	if err := o.reloadForward(); err != nil {
		return err
	}
	o.evictMirror()

	err = workerpool.Run(o.src, o.cfg.NThreads, func(workerID int, r readsrc.Read) error {
		if o.bm.Test(r.ID) {
			return nil
		}
		l := len(r.Fw)
		if l < o.cfg.MinReadLen() {
			return nil
		}

		rcBases := readsrc.ToBytes(r.Rc)
		for _, sl := range o.store.Get(r.ID) {
			bt := o.btFor(workerID, o.fwd)
			ext := backtrack.Params{MaxMismatches: maxMM, ConsiderQuals: true, QualThresh: qualThresh,
				Mutations: seedlingMutations(sl), OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
			if o.cfg.OneHit {
				ext.Rand = prngFor(o.cfg.Seed, 3, workerID)
			}
			bt.Run(r.ID, '-', rcBases, r.QualRc, ext)
			if bt.HitOccurred() {
				if err := o.markDone(r.ID); err != nil {
					return err
				}
			}
		}
		if o.bm.Test(r.ID) {
			return nil
		}

		hhP := backtrack.Params{
			Thresholds:    backtrack.Thresholds{UnrevOff: 0, Rev1Off: l, Rev2Off: l, Rev3Off: l},
			MaxMismatches: maxMM, HalfAndHalf: true, SeedLen: l,
			ConsiderQuals: true, QualThresh: qualThresh,
			OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(),
			SanityCheck: o.cfg.SanityCheck,
		}
		bt := o.btFor(workerID, o.fwd)
		bt.Run(r.ID, '-', rcBases, r.QualRc, hhP)
		if bt.HitOccurred() {
			return o.markDone(r.ID)
		}

		seedP := backtrack.Params{Thresholds: leftHalf(l), MaxMismatches: maxMM,
			ConsiderQuals: true, QualThresh: qualThresh, SeedLen: seedLen,
			ReportSeedlings: 3, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		bt2 := o.btFor(workerID, o.fwd)
		bt2.Run(r.ID, '+', readsrc.ToBytes(r.Fw), r.QualFw, seedP)
		return nil
	})
	if err != nil {
		return err
	}

	// Phase 4 (mirror index): extend phase-3 seedlings to full fw
	// alignments; half-and-half on fw.
	if err := o.src.Reset(true); err != nil {
		return err
	}
	if err := o.ensureMirror(); err != nil {
		return err
	}
	o.evictForward()

	return workerpool.Run(o.src, o.cfg.NThreads, func(workerID int, r readsrc.Read) error {
		if o.bm.Test(r.ID) {
			return nil
		}
		l := len(r.Fw)
		if l < o.cfg.MinReadLen() {
			return nil
		}

		fwBases := readsrc.ToBytes(r.Fw)
		for _, sl := range o.store.Get(r.ID) {
			bt := o.btFor(workerID, o.mir)
			ext := backtrack.Params{MaxMismatches: maxMM, ConsiderQuals: true, QualThresh: qualThresh,
				Mutations: seedlingMutations(sl), OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
			if o.cfg.OneHit {
				ext.Rand = prngFor(o.cfg.Seed, 4, workerID)
			}
			bt.Run(r.ID, '+', fwBases, r.QualFw, ext)
			if bt.HitOccurred() {
				if err := o.markDone(r.ID); err != nil {
					return err
				}
			}
		}
		if o.bm.Test(r.ID) {
			return nil
		}

		hhP := backtrack.Params{
			Thresholds:    backtrack.Thresholds{UnrevOff: 0, Rev1Off: l, Rev2Off: l, Rev3Off: l},
			MaxMismatches: maxMM, HalfAndHalf: true, SeedLen: l,
			ConsiderQuals: true, QualThresh: qualThresh,
			OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(),
			SanityCheck: o.cfg.SanityCheck,
		}
		bt := o.btFor(workerID, o.mir)
		bt.Run(r.ID, '+', fwBases, r.QualFw, hhP)
		if bt.HitOccurred() {
			return o.markDone(r.ID)
		}
		return nil
	})
}
