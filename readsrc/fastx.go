package readsrc

import (
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// NPolicy controls how 'N' bases are treated on ingestion, per spec.md §6.
type NPolicy int

const (
	// NMatchesNothing is the default: N is left as-is and the aligner's
	// narrow() never extends a match through it.
	NMatchesNothing NPolicy = iota
	// NToA substitutes N with A on ingestion.
	NToA
)

func applyNPolicy(bs []byte, p NPolicy) {
	if p != NToA {
		return
	}
	for i, b := range bs {
		if b == 'N' {
			bs[i] = 'A'
		}
	}
}

// FastxSource reads FASTA or FASTQ records via shenwei356/bio/seqio/fastx,
// the same reader lexicmap/cmd/map.go and cmd/search.go use for their
// input streams. Quality defaults to 40 for FASTA input.
type FastxSource struct {
	path     string
	nPolicy  NPolicy
	solexa   bool
	trim5    int
	trim3    int
	maxNs    int

	mu       sync.Mutex
	reader   *fastx.Reader
	nextID   uint32
	reversed bool
	err      error
}

// NewFastxSource opens path (FASTA or FASTQ, optionally gzipped; "-" for
// stdin) for streaming. solexaQuals rescales FASTQ Solexa quality values
// to Phred on ingestion, per spec.md §6.
func NewFastxSource(path string, nPolicy NPolicy, solexaQuals bool, trim5, trim3, maxNs int) (*FastxSource, error) {
	seq.ValidateSeq = false
	s := &FastxSource{path: path, nPolicy: nPolicy, solexa: solexaQuals, trim5: trim5, trim3: trim3, maxNs: maxNs}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FastxSource) open() error {
	r, err := fastx.NewReader(nil, s.path, "")
	if err != nil {
		return errors.Wrapf(err, "readsrc: opening %s", s.path)
	}
	s.reader = r
	return nil
}

// Next implements Source.
func (s *FastxSource) Next() (Read, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		record, err := s.reader.Read()
		if err != nil {
			if err != io.EOF {
				s.err = errors.Wrapf(err, "readsrc: reading %s", s.path)
			}
			return Read{}, false
		}

		fw := append([]byte{}, record.Seq.Seq...)
		if s.trim5 > 0 && s.trim5 < len(fw) {
			fw = fw[s.trim5:]
		}
		if s.trim3 > 0 && s.trim3 < len(fw) {
			fw = fw[:len(fw)-s.trim3]
		}
		applyNPolicy(fw, s.nPolicy)

		qfw := qualityBytes(record, len(fw), s.solexa)

		nCount := 0
		for _, b := range fw {
			if b == 'N' {
				nCount++
			}
		}
		if s.maxNs > 0 && nCount > s.maxNs {
			continue
		}

		id := s.nextID
		s.nextID++

		r := Read{
			ID:     id,
			Name:   string(record.ID),
			Fw:     FromBytes(fw),
			QualFw: qfw,
		}
		r.Rc = ReverseComplement(r.Fw)
		r.QualRc = reverseQuals(qfw)

		if s.reversed {
			r.Fw, r.Rc = ReverseBases(r.Fw), ReverseBases(r.Rc)
			r.QualFw, r.QualRc = reverseQuals(r.QualFw), reverseQuals(r.QualRc)
		}
		return r, true
	}
}

// qualityBytes extracts per-base Phred-scaled quality from record.Seq.Qual
// (FASTQ Phred+33 ASCII), rescaling from Solexa if requested; FASTA
// records carry no quality and get a flat high-confidence default.
func qualityBytes(record *fastx.Record, n int, solexa bool) []uint8 {
	out := make([]uint8, n)
	q := record.Seq.Qual
	if len(q) == 0 {
		for i := range out {
			out[i] = 40
		}
		return out
	}
	for i := 0; i < n && i < len(q); i++ {
		v := int(q[i]) - 33
		if solexa {
			v = solexaToPhred(v)
		}
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		out[i] = uint8(v)
	}
	return out
}

// solexaToPhred rescales a Solexa quality value to Phred, per the
// standard formula Phred = 10*log10(1 + 10^(Solexa/10)).
func solexaToPhred(solexa int) int {
	if solexa < -5 {
		return 0
	}
	// Table lookup avoids a math.Log10 call per base (Solexa range is
	// [-5, 62]).
	return solexaPhredTable[solexa+5]
}

var solexaPhredTable = buildSolexaTable()

func buildSolexaTable() [68]int {
	var t [68]int
	for s := -5; s < 63; s++ {
		// 10*log10(1+10^(s/10)) computed once at init, rounded to the
		// nearest integer.
		t[s+5] = solexaApprox(s)
	}
	return t
}

func solexaApprox(s int) int {
	return int(10*math.Log10(1+math.Pow(10, float64(s)/10)) + 0.5)
}

func reverseQuals(q []uint8) []uint8 {
	n := len(q)
	out := make([]uint8, n)
	for i, v := range q {
		out[n-1-i] = v
	}
	return out
}

// ReverseBases reverses (not complements) a base slice, used to present
// reads to the mirror index per spec.md §4.4's closing paragraph.
func ReverseBases(bs []Base) []Base {
	n := len(bs)
	out := make([]Base, n)
	for i, b := range bs {
		out[n-1-i] = b
	}
	return out
}

// Err implements Source.
func (s *FastxSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Reset implements Source: closes and reopens the underlying file.
func (s *FastxSource) Reset(reversed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		s.reader.Close()
	}
	s.nextID = 0
	s.reversed = reversed
	s.err = nil
	return s.open()
}

// Close implements Source.
func (s *FastxSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader == nil {
		return nil
	}
	s.reader.Close()
	return nil
}
