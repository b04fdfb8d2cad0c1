// Package seedstore implements the Partial-Alignment Store of spec.md
// §4.3: a read_id-keyed collection of seed-side mismatch "seedlings"
// that one phase writes and a later phase extends into full alignments.
package seedstore

import "sync"

// sentinelPos marks an unused substitution slot in a Seedling, per
// spec.md §3.
const sentinelPos = 0xff

// Seedling is the fixed-size partial-alignment record of spec.md §3:
// up to three (position, substituted base) pairs describing a seed-only
// match.
type Seedling struct {
	ReadID uint32
	Pos    [3]uint8
	Char   [3]byte
}

// NewSeedling returns a Seedling with all slots marked unused.
func NewSeedling(readID uint32) Seedling {
	return Seedling{ReadID: readID, Pos: [3]uint8{sentinelPos, sentinelPos, sentinelPos}}
}

// NumMutations returns how many of the three slots are in use.
func (s *Seedling) NumMutations() int {
	n := 0
	for _, p := range s.Pos {
		if p != sentinelPos {
			n++
		}
	}
	return n
}

// AddMutation fills the next free slot. It is a programming error (panic)
// to call this a fourth time; the Backtracker never does, since
// reportSeedlings is capped at 3 by spec.md §3.
func (s *Seedling) AddMutation(pos uint8, char byte) {
	for i := range s.Pos {
		if s.Pos[i] == sentinelPos {
			s.Pos[i] = pos
			s.Char[i] = char
			return
		}
	}
	panic("seedstore: seedling already has 3 mutations")
}

// nShards partitions the store's internal map to reduce lock contention
// across the many reads in flight concurrently within a phase -- each
// read is written by exactly one worker (spec.md §4.3), so the sharding
// only needs to avoid one read's append blocking on another's.
const nShards = 16

type shard struct {
	mu   sync.Mutex
	data map[uint32][]Seedling
}

// Store is the Partial-Alignment Store. Safe for concurrent use by
// multiple workers during a phase, per spec.md §4.3 and §5 ("the
// Partial-Alignment Store is partitioned by read_id ... race-free
// without locking" -- the sharded mutex here is defensive belt-and-
// braces against a future caller that violates the one-worker-per-read
// rule, at negligible cost since shards are rarely contended).
type Store struct {
	shards [nShards]*shard
}

// New creates an empty Store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{data: make(map[uint32][]Seedling, 1024)}
	}
	return s
}

func (s *Store) shardFor(readID uint32) *shard {
	return s.shards[readID%nShards]
}

// Append records one seedling for readID. Entries are never deleted
// during a phase (spec.md §4.3).
func (s *Store) Append(readID uint32, sl Seedling) {
	sh := s.shardFor(readID)
	sh.mu.Lock()
	sh.data[readID] = append(sh.data[readID], sl)
	sh.mu.Unlock()
}

// Get returns the seedlings recorded for readID, or nil if none. The
// returned slice is a copy; callers may not mutate the store's backing
// array through it.
func (s *Store) Get(readID uint32) []Seedling {
	sh := s.shardFor(readID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sls := sh.data[readID]
	if len(sls) == 0 {
		return nil
	}
	out := make([]Seedling, len(sls))
	copy(out, sls)
	return out
}

// Reset empties the store, releasing its backing maps. Used between
// independent test runs; production phases never call this mid-run.
func (s *Store) Reset() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.data = make(map[uint32][]Seedling, 1024)
		sh.mu.Unlock()
	}
}
