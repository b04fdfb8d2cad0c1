package orchestrate

import (
	"github.com/bioforge/fmap/backtrack"
	"github.com/bioforge/fmap/readsrc"
	"github.com/bioforge/fmap/workerpool"
)

// Run23Mismatch implements spec.md §4.4's three-phase 2/3-mismatch
// end-to-end search. The mismatch cap comes from o.cfg.Mismatches()
// (2 or 3); 3-mismatch mode additionally leaves the non-seed tail
// unrestricted.
func (o *Orchestrator) Run23Mismatch() error {
	maxMM := o.cfg.Mismatches()

	if err := o.reloadForward(); err != nil {
		return err
	}
	err := workerpool.Run(o.src, o.cfg.NThreads, func(workerID int, r readsrc.Read) error {
		l := len(r.Fw)
		if l < o.cfg.MinReadLen() {
			return nil
		}
		bt := o.btFor(workerID, o.fwd)

		exactP := backtrack.Params{Thresholds: backtrack.Thresholds{}, MaxMismatches: 0,
			OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		bt.Run(r.ID, '+', readsrc.ToBytes(r.Fw), r.QualFw, exactP)
		if bt.HitOccurred() {
			return o.markDone(r.ID)
		}

		_, s5, _ := seedSplit(l, 0)
		tailFrom := l
		if maxMM == 3 {
			// 3-mismatch mode leaves the non-seed tail unrestricted; there
			// is no seed/tail split supplied for end-to-end modes, so the
			// "tail" is simply whatever lies past the right-half seed.
			tailFrom = s5
		}
		thr := seedThresholds(l, s5, s5, maxMM)
		if maxMM == 3 {
			thr.Rev3Off = tailFrom
		}
		p := backtrack.Params{Thresholds: thr, MaxMismatches: maxMM,
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
		_, _, s3 := seedSplit(l, 0)
		_, s5, _ := seedSplit(l, 0)
		thr := seedThresholds(l, s5, s3, maxMM)

		p := backtrack.Params{Thresholds: thr, MaxMismatches: maxMM,
			OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		if o.cfg.OneHit {
			p.Rand = prngFor(o.cfg.Seed, 2, workerID)
		}

		bt := o.btFor(workerID, o.mir)
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
	if err != nil {
		return err
	}

	if err := o.src.Reset(false); err != nil {
		return err
	}
	if err := o.reloadForward(); err != nil {
		return err
	}
	o.evictMirror()

	return workerpool.Run(o.src, o.cfg.NThreads, func(workerID int, r readsrc.Read) error {
		if o.bm.Test(r.ID) {
			return nil
		}
		l := len(r.Fw)
		if l < o.cfg.MinReadLen() {
			return nil
		}
		p := backtrack.Params{
			Thresholds:    backtrack.Thresholds{UnrevOff: 0, Rev1Off: l, Rev2Off: l, Rev3Off: l},
			MaxMismatches: maxMM, HalfAndHalf: true, SeedLen: l,
			OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(),
			SanityCheck: o.cfg.SanityCheck,
		}
		if o.cfg.OneHit {
			p.Rand = prngFor(o.cfg.Seed, 3, workerID)
		}

		bt := o.btFor(workerID, o.fwd)
		bt.Run(r.ID, '+', readsrc.ToBytes(r.Fw), r.QualFw, p)
		if bt.HitOccurred() {
			return o.markDone(r.ID)
		}
		if o.cfg.Revcomp {
			bt2 := o.btFor(workerID, o.fwd)
			bt2.Run(r.ID, '-', readsrc.ToBytes(r.Rc), r.QualRc, p)
			if bt2.HitOccurred() {
				return o.markDone(r.ID)
			}
		}
		return nil
	})
}
