package readsrc

import "testing"

func TestReverseComplementIdempotent(t *testing.T) {
	r := FromBytes([]byte("ACGTNACGT"))
	rc := ReverseComplement(r)
	rcrc := ReverseComplement(rc)
	for i := range r {
		if r[i] != rcrc[i] {
			t.Fatalf("rc(rc(R)) != R at %d: got %c want %c", i, rcrc[i], r[i])
		}
	}
}

func TestComplementPreservesN(t *testing.T) {
	if Complement(N) != N {
		t.Fatalf("N should complement to N")
	}
}

func TestReadValidate(t *testing.T) {
	r := Read{Fw: FromBytes([]byte("ACGT")), Rc: FromBytes([]byte("ACGT")), QualFw: []uint8{1, 2, 3, 4}, QualRc: []uint8{1, 2, 3, 4}}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid read, got %v", err)
	}
	bad := Read{Fw: FromBytes([]byte("ACGT")), Rc: FromBytes([]byte("ACG")), QualFw: []uint8{1, 2, 3, 4}, QualRc: []uint8{1, 2, 3, 4}}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected a length-mismatch error")
	}
}

func TestCountNs(t *testing.T) {
	r := Read{Fw: FromBytes([]byte("ANCGNT"))}
	if n := r.CountNs(); n != 2 {
		t.Fatalf("expected 2 Ns, got %d", n)
	}
}

func TestLiteralSourceRoundTrip(t *testing.T) {
	src := NewLiteralSource([]string{"acgtacgt", "ttttgggg"}, NMatchesNothing)
	var got []string
	for {
		r, ok := src.Next()
		if !ok {
			break
		}
		got = append(got, string(ToBytes(r.Fw)))
	}
	if len(got) != 2 || got[0] != "ACGTACGT" || got[1] != "TTTTGGGG" {
		t.Fatalf("unexpected reads: %v", got)
	}
}

func TestLiteralSourceReset(t *testing.T) {
	src := NewLiteralSource([]string{"ACGT"}, NMatchesNothing)
	src.Next()
	if _, ok := src.Next(); ok {
		t.Fatalf("expected exhaustion after 1 read")
	}
	if err := src.Reset(false); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, ok := src.Next(); !ok {
		t.Fatalf("expected a read after Reset")
	}
}

func TestRandomSourceDeterministic(t *testing.T) {
	a := NewRandomSource(42, 5, 20, NMatchesNothing)
	b := NewRandomSource(42, 5, 20, NMatchesNothing)
	for i := 0; i < 5; i++ {
		ra, _ := a.Next()
		rb, _ := b.Next()
		if string(ToBytes(ra.Fw)) != string(ToBytes(rb.Fw)) {
			t.Fatalf("same seed produced different reads at index %d", i)
		}
	}
}

func TestNToAPolicy(t *testing.T) {
	src := NewLiteralSource([]string{"ACNGT"}, NToA)
	r, _ := src.Next()
	if string(ToBytes(r.Fw)) != "ACAGT" {
		t.Fatalf("expected N->A substitution, got %s", string(ToBytes(r.Fw)))
	}
}
