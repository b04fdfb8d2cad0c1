package orchestrate

import (
	"github.com/bioforge/fmap/backtrack"
	"github.com/bioforge/fmap/readsrc"
	"github.com/bioforge/fmap/workerpool"
)

// RunExact implements spec.md §4.4's exact-mode single phase: narrow fw
// fully against the forward index; on no hit, try rc if Revcomp is set.
// A fw hit skips the rc attempt, with or without oneHit.
func (o *Orchestrator) RunExact() error {
	if err := o.reloadForward(); err != nil {
		return err
	}
	return workerpool.Run(o.src, o.cfg.NThreads, func(workerID int, r readsrc.Read) error {
		if len(r.Fw) < o.cfg.MinReadLen() {
			return nil
		}
		bt := o.btFor(workerID, o.fwd)
		thr := backtrack.Thresholds{} // every position unrevisitable: exact match only

		p := backtrack.Params{Thresholds: thr, MaxMismatches: 0, OneHit: o.cfg.OneHit, MaxBacktracks: o.cfg.EffectiveMaxBacktracks(), SanityCheck: o.cfg.SanityCheck}
		if o.cfg.OneHit {
			p.Rand = prngFor(o.cfg.Seed, 1, workerID)
		}

		bt.Run(r.ID, '+', readsrc.ToBytes(r.Fw), r.QualFw, p)
		foundFw := bt.HitOccurred()
		if foundFw {
			if err := o.bm.Set(r.ID); err != nil {
				return err
			}
		}

		if !foundFw && o.cfg.Revcomp {
			bt2 := o.btFor(workerID, o.fwd)
			bt2.Run(r.ID, '-', readsrc.ToBytes(r.Rc), r.QualRc, p)
			if bt2.HitOccurred() {
				if err := o.bm.Set(r.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
