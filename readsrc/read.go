// Package readsrc defines the Read type and the Read Source contract
// (spec.md §6): any iterator of reads, with adapters for the common
// upstream file formats. The core aligner packages only depend on the
// Source interface below; they never know which adapter produced a read.
package readsrc

import "fmt"

// Base is a single nucleotide, one of A, C, G, T, N.
type Base byte

// The five symbols the aligner ever sees. Anything else is a read-source
// bug, not an aligner concern.
const (
	A Base = 'A'
	C Base = 'C'
	G Base = 'G'
	T Base = 'T'
	N Base = 'N'
)

var complement = map[Base]Base{A: T, C: G, G: C, T: A, N: N}

// Complement returns the Watson-Crick complement of b, or N for N.
func Complement(b Base) Base {
	if c, ok := complement[b]; ok {
		return c
	}
	return N
}

// ReverseComplement returns the reverse complement of bs, N<->N preserved,
// per spec.md §3's invariant on Read.Rc.
func ReverseComplement(bs []Base) []Base {
	n := len(bs)
	out := make([]Base, n)
	for i, b := range bs {
		out[n-1-i] = Complement(b)
	}
	return out
}

// ToBytes copies bs into a plain []byte, for handing to packages (fmindex,
// backtrack) that work in raw bytes rather than the Base type.
func ToBytes(bs []Base) []byte {
	out := make([]byte, len(bs))
	for i, b := range bs {
		out[i] = byte(b)
	}
	return out
}

// FromBytes copies raw bases into a []Base, the inverse of ToBytes.
func FromBytes(bs []byte) []Base {
	out := make([]Base, len(bs))
	for i, b := range bs {
		out[i] = Base(b)
	}
	return out
}

// Read is the tuple described in spec.md §3: forward bases, their reverse
// complement, and per-base Phred-scaled quality for both orientations.
// Ids are assigned densely starting at 0 by the Source that produced the
// read.
type Read struct {
	ID     uint32
	Name   string
	Fw     []Base
	Rc     []Base
	QualFw []uint8
	QualRc []uint8
}

// Len returns the read length, which by invariant equals len(Fw) ==
// len(Rc) == len(QualFw) == len(QualRc).
func (r *Read) Len() int { return len(r.Fw) }

// Validate checks the length invariant of spec.md §3.
func (r *Read) Validate() error {
	n := len(r.Fw)
	if len(r.Rc) != n || len(r.QualFw) != n || len(r.QualRc) != n {
		return fmt.Errorf("read %q: fw/rc/qual length mismatch (%d/%d/%d/%d)",
			r.Name, len(r.Fw), len(r.Rc), len(r.QualFw), len(r.QualRc))
	}
	return nil
}

// CountNs returns the number of N bases in the forward orientation.
func (r *Read) CountNs() int {
	n := 0
	for _, b := range r.Fw {
		if b == N {
			n++
		}
	}
	return n
}

// Source yields a dense, id-ordered stream of reads. Implementations must
// serialize concurrent calls to Next internally (spec.md §4.6: "the read
// stream is the only serialization point for read ingestion").
type Source interface {
	// Next returns the next read and true, or the zero Read and false at
	// end of stream. io errors are fatal (spec.md §7 category 1) and are
	// reported via Err.
	Next() (Read, bool)
	// Err returns the first error encountered, if any.
	Err() error
	// Reset rewinds the source to its first read, honoring reversed for
	// sources that present reads in a different base order for the
	// mirror-index phases (spec.md §4.4 closing paragraph).
	Reset(reversed bool) error
	// Close releases any underlying file handles.
	Close() error
}
