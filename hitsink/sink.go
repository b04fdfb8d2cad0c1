// Package hitsink implements the three Hit Sink output modes of
// spec.md §6, writing through xopen/pgzip the way the teacher's cmd
// package opens its output streams (see lexicmap/cmd/util.go's
// outStream helper).
package hitsink

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"

	"github.com/bioforge/fmap/backtrack"
	"github.com/bioforge/fmap/readsrc"
)

// Mode selects an output format.
type Mode int

const (
	Full Mode = iota
	Concise
	None
)

// NameResolver maps a read id to its original name and a ref id to its
// reference name, the bits of context the per-hit line needs but the
// Backtracker itself doesn't carry.
type NameResolver interface {
	ReadName(readID uint32) string
	RefName(refID uint32) string
	ReadBases(readID uint32, strand byte) ([]byte, []uint8)
}

// Sink fans Emit calls out to a writer under Mode's formatting rules.
// Safe for concurrent use by many workers; writes are serialized by mu,
// matching spec.md §4.6's "Hit Sink (internally synchronized)".
type Sink struct {
	mode Mode
	w    *bufio.Writer
	c    io.Closer // non-nil when w wraps a file this Sink owns and must Close
	res  NameResolver
	mu   sync.Mutex
}

// New opens path for writing (".gz" suffix triggers pgzip compression
// via xopen, as LexicMap's output helpers do) and returns a Sink in the
// given mode. path == "-" writes to stdout.
func New(path string, mode Mode, res NameResolver) (*Sink, error) {
	w, err := xopen.Wopen(path)
	if err != nil {
		return nil, errors.Wrapf(err, "hitsink: opening %s", path)
	}
	return &Sink{mode: mode, w: bufio.NewWriter(w), c: w, res: res}, nil
}

// NewPgzipWriter returns a Sink writing through an already-open pgzip
// writer, for callers that manage their own output file handle. The Sink
// does not close w.
func NewPgzipWriter(w *pgzip.Writer, mode Mode, res NameResolver) *Sink {
	return &Sink{mode: mode, w: bufio.NewWriter(w), res: res}
}

// Emit implements backtrack.Sink.
func (s *Sink) Emit(h backtrack.Hit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case None:
		return
	case Concise:
		s.writeConcise(h)
	default:
		s.writeFull(h)
	}
}

func (s *Sink) writeConcise(h backtrack.Hit) {
	fmt.Fprintf(s.w, "%d%c:<%d,%d,%d>\n", h.ReadID, h.Strand, h.RefID, h.RefOffset, h.MismatchLen)
}

func (s *Sink) writeFull(h backtrack.Hit) {
	name := fmt.Sprintf("read%d", h.ReadID)
	refName := fmt.Sprintf("ref%d", h.RefID)
	var bases []byte
	var quals []uint8
	if s.res != nil {
		if n := s.res.ReadName(h.ReadID); n != "" {
			name = n
		}
		if n := s.res.RefName(h.RefID); n != "" {
			refName = n
		}
		bases, quals = s.res.ReadBases(h.ReadID, h.Strand)
	}
	fmt.Fprintf(s.w, "%s\t%c\t%s\t%d\t%s\t%s\t%s\n",
		name, h.Strand, refName, h.RefOffset,
		string(bases), quals2str(quals), mismatchDescriptor(h.Mismatches))
}

func mismatchDescriptor(positions []int) string {
	if len(positions) == 0 {
		return "-"
	}
	out := ""
	for i, p := range positions {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d", p)
	}
	return out
}

func quals2str(q []uint8) string {
	if len(q) == 0 {
		return "-"
	}
	b := make([]byte, len(q))
	for i, v := range q {
		b[i] = byte(v) + 33 // Phred+33, the de facto FASTQ convention
	}
	return string(b)
}

// Flush flushes buffered output. Close also flushes, then releases the
// underlying file handle if this Sink opened it.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

func (s *Sink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

// staticResolver is a trivial NameResolver backed by a slice of reads,
// for callers that keep every read in memory rather than re-opening the
// Read Source. RefName always returns "".
type staticResolver struct {
	reads []readsrc.Read
}

// NewStaticResolver builds a NameResolver over an in-memory read set.
func NewStaticResolver(reads []readsrc.Read) NameResolver {
	return &staticResolver{reads: reads}
}

func (r *staticResolver) ReadName(id uint32) string {
	if int(id) < len(r.reads) {
		return r.reads[id].Name
	}
	return ""
}

func (r *staticResolver) RefName(uint32) string { return "" }

func (r *staticResolver) ReadBases(id uint32, strand byte) ([]byte, []uint8) {
	if int(id) >= len(r.reads) {
		return nil, nil
	}
	rd := r.reads[id]
	if strand == '-' {
		return readsrc.ToBytes(rd.Rc), rd.QualRc
	}
	return readsrc.ToBytes(rd.Fw), rd.QualFw
}
