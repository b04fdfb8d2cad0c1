package fmindex

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// On-disk layout follows spec.md §6's two-file split, named after the
// forward/mirror pairing ebwt_search.cpp expects: basename.1.ebwt holds
// the BWT and rank tables, basename.2.ebwt holds the sampled suffix
// array. A mirror index is saved/loaded with the ".rev" infix.
const (
	suffixMain   = ".1.ebwt"
	suffixSample = ".2.ebwt"
	mirrorInfix  = ".rev"
	magic        = uint32(0xFA57AB1E)
	formatVers   = uint32(2) // v2 adds the packed reference text for sanity-check builds
)

// Save writes idx to basename.1.ebwt and basename.2.ebwt (or their
// ".rev" counterparts if idx is a mirror index).
func (idx *Index) Save(basename string) error {
	if !idx.resident {
		return errors.New("fmindex: cannot save an evicted index")
	}
	mainPath, samplePath := idx.paths(basename)

	if err := idx.saveMain(mainPath); err != nil {
		return errors.Wrapf(err, "fmindex: saving %s", mainPath)
	}
	if err := idx.saveSample(samplePath); err != nil {
		return errors.Wrapf(err, "fmindex: saving %s", samplePath)
	}
	return nil
}

func (idx *Index) paths(basename string) (main, sample string) {
	infix := ""
	if idx.mirror {
		infix = mirrorInfix
	}
	return basename + infix + suffixMain, basename + infix + suffixSample
}

func (idx *Index) saveMain(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := writeU32(w, magic); err != nil {
		return err
	}
	if err := writeU32(w, formatVers); err != nil {
		return err
	}
	if err := writeBool(w, idx.mirror); err != nil {
		return err
	}
	if err := writeU64(w, idx.n); err != nil {
		return err
	}
	if err := writeU32(w, uint32(idx.checkpointStep)); err != nil {
		return err
	}
	if err := writeU32(w, idx.sampleStride); err != nil {
		return err
	}

	for _, v := range idx.c {
		if err := writeU64(w, v); err != nil {
			return err
		}
	}

	if err := writeU32(w, uint32(len(idx.refs))); err != nil {
		return err
	}
	for _, rs := range idx.refs {
		if err := writeString(w, rs.Name); err != nil {
			return err
		}
		if err := writeU64(w, rs.Start); err != nil {
			return err
		}
		if err := writeU64(w, rs.Length); err != nil {
			return err
		}
	}

	if err := writeU32(w, uint32(len(idx.bwt))); err != nil {
		return err
	}
	if _, err := w.Write(idx.bwt); err != nil {
		return err
	}

	if err := writeU32(w, uint32(len(idx.checkpoints))); err != nil {
		return err
	}
	for _, cp := range idx.checkpoints {
		for _, v := range cp {
			if err := writeU64(w, v); err != nil {
				return err
			}
		}
	}

	if err := writeU32(w, uint32(len(idx.text))); err != nil {
		return err
	}
	if _, err := w.Write(idx.text); err != nil {
		return err
	}

	return w.Flush()
}

func (idx *Index) saveSample(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := writeU32(w, magic); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(idx.sampled))); err != nil {
		return err
	}
	for row, off := range idx.sampled {
		if err := writeU64(w, row); err != nil {
			return err
		}
		if err := writeU32(w, off); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Load reads basename.1.ebwt and basename.2.ebwt (or their ".rev"
// counterparts when mirror is true) back into a resident Index.
func Load(basename string, mirror bool) (*Index, error) {
	idx := &Index{mirror: mirror}
	infix := ""
	if mirror {
		infix = mirrorInfix
	}
	mainPath := basename + infix + suffixMain
	samplePath := basename + infix + suffixSample

	if err := idx.loadMain(mainPath); err != nil {
		return nil, errors.Wrapf(err, "fmindex: loading %s", mainPath)
	}
	if err := idx.loadSample(samplePath); err != nil {
		return nil, errors.Wrapf(err, "fmindex: loading %s", samplePath)
	}
	idx.resident = true
	return idx, nil
}

func (idx *Index) loadMain(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	m, err := readU32(r)
	if err != nil {
		return err
	}
	if m != magic {
		return errors.New("fmindex: bad magic number, not an .ebwt file")
	}
	v, err := readU32(r)
	if err != nil {
		return err
	}
	if v != formatVers {
		return errors.Errorf("fmindex: unsupported format version %d", v)
	}
	storedMirror, err := readBool(r)
	if err != nil {
		return err
	}
	if storedMirror != idx.mirror {
		return errors.New("fmindex: mirror flag in file does not match requested orientation")
	}
	if idx.n, err = readU64(r); err != nil {
		return err
	}
	step, err := readU32(r)
	if err != nil {
		return err
	}
	idx.checkpointStep = int(step)
	if idx.sampleStride, err = readU32(r); err != nil {
		return err
	}

	for i := range idx.c {
		if idx.c[i], err = readU64(r); err != nil {
			return err
		}
	}

	nRefs, err := readU32(r)
	if err != nil {
		return err
	}
	idx.refs = make([]RefSeqInfo, nRefs)
	for i := range idx.refs {
		name, err := readString(r)
		if err != nil {
			return err
		}
		start, err := readU64(r)
		if err != nil {
			return err
		}
		length, err := readU64(r)
		if err != nil {
			return err
		}
		idx.refs[i] = RefSeqInfo{Name: name, Start: start, Length: length}
	}

	nBwt, err := readU32(r)
	if err != nil {
		return err
	}
	idx.bwt = make([]byte, nBwt)
	if _, err := io.ReadFull(r, idx.bwt); err != nil {
		return err
	}

	nCps, err := readU32(r)
	if err != nil {
		return err
	}
	idx.checkpoints = make([][nSymbols]uint64, nCps)
	for i := range idx.checkpoints {
		for j := range idx.checkpoints[i] {
			if idx.checkpoints[i][j], err = readU64(r); err != nil {
				return err
			}
		}
	}

	nText, err := readU32(r)
	if err != nil {
		return err
	}
	idx.text = make([]byte, nText)
	if _, err := io.ReadFull(r, idx.text); err != nil {
		return err
	}

	idx.refTree = buildRefTree(idx.refs)
	return nil
}

func (idx *Index) loadSample(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	m, err := readU32(r)
	if err != nil {
		return err
	}
	if m != magic {
		return errors.New("fmindex: bad magic number, not an .ebwt sample file")
	}
	n, err := readU32(r)
	if err != nil {
		return err
	}
	idx.sampled = make(map[uint64]uint32, n)
	for i := uint32(0); i < n; i++ {
		row, err := readU64(r)
		if err != nil {
			return err
		}
		off, err := readU32(r)
		if err != nil {
			return err
		}
		idx.sampled[row] = off
	}
	return nil
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeBool(w io.Writer, v bool) error {
	if v {
		return writeU32(w, 1)
	}
	return writeU32(w, 0)
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readBool(r io.Reader) (bool, error) {
	v, err := readU32(r)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
