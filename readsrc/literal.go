package readsrc

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// LiteralSource serves a fixed, in-memory list of sequences -- the
// command-line-literal adapter of spec.md §6 ("-c" style single-read
// invocations).
type LiteralSource struct {
	seqs     []string
	nPolicy  NPolicy
	mu       sync.Mutex
	next     int
	nextID   uint32
	reversed bool
}

// NewLiteralSource builds a Source over literal sequences given directly
// on the command line.
func NewLiteralSource(seqs []string, nPolicy NPolicy) *LiteralSource {
	return &LiteralSource{seqs: seqs, nPolicy: nPolicy}
}

func (s *LiteralSource) Next() (Read, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.seqs) {
		return Read{}, false
	}
	fw := []byte(strings.ToUpper(s.seqs[s.next]))
	applyNPolicy(fw, s.nPolicy)
	s.next++

	qfw := make([]uint8, len(fw))
	for i := range qfw {
		qfw[i] = 40
	}
	id := s.nextID
	s.nextID++

	r := Read{ID: id, Name: "literal", Fw: FromBytes(fw), QualFw: qfw}
	r.Rc = ReverseComplement(r.Fw)
	r.QualRc = reverseQuals(qfw)
	if s.reversed {
		r.Fw, r.Rc = ReverseBases(r.Fw), ReverseBases(r.Rc)
		r.QualFw, r.QualRc = reverseQuals(r.QualFw), reverseQuals(r.QualRc)
	}
	return r, true
}

func (s *LiteralSource) Err() error { return nil }

func (s *LiteralSource) Reset(reversed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
	s.nextID = 0
	s.reversed = reversed
	return nil
}

func (s *LiteralSource) Close() error { return nil }

// RawSource reads one sequence per line from a plain text file, the
// "raw" format of spec.md §6.
type RawSource struct {
	path    string
	nPolicy NPolicy

	mu       sync.Mutex
	f        *os.File
	scanner  *bufio.Scanner
	nextID   uint32
	reversed bool
	err      error
}

// NewRawSource opens path for one-sequence-per-line reading.
func NewRawSource(path string, nPolicy NPolicy) (*RawSource, error) {
	s := &RawSource{path: path, nPolicy: nPolicy}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RawSource) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrapf(err, "readsrc: opening %s", s.path)
	}
	s.f = f
	s.scanner = bufio.NewScanner(f)
	return nil
}

func (s *RawSource) Next() (Read, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		fw := []byte(strings.ToUpper(line))
		applyNPolicy(fw, s.nPolicy)

		qfw := make([]uint8, len(fw))
		for i := range qfw {
			qfw[i] = 40
		}
		id := s.nextID
		s.nextID++

		r := Read{ID: id, Name: "raw", Fw: FromBytes(fw), QualFw: qfw}
		r.Rc = ReverseComplement(r.Fw)
		r.QualRc = reverseQuals(qfw)
		if s.reversed {
			r.Fw, r.Rc = ReverseBases(r.Fw), ReverseBases(r.Rc)
			r.QualFw, r.QualRc = reverseQuals(r.QualFw), reverseQuals(r.QualRc)
		}
		return r, true
	}
	if err := s.scanner.Err(); err != nil && err != io.EOF {
		s.err = errors.Wrapf(err, "readsrc: reading %s", s.path)
	}
	return Read{}, false
}

func (s *RawSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *RawSource) Reset(reversed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f != nil {
		s.f.Close()
	}
	s.nextID = 0
	s.reversed = reversed
	s.err = nil
	return s.open()
}

func (s *RawSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}
