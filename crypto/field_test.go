package crypto

import (
	"math/big"
	"testing"
)

func TestFieldAddMulRoundTrip(t *testing.T) {
	a := FieldFromUint64(7)
	b := FieldFromUint64(35)

	sum := a.Add(b)
	if sum.BigInt().Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("7+35 = %s, want 42", sum.String())
	}

	prod := a.Mul(b)
	if prod.BigInt().Cmp(big.NewInt(245)) != 0 {
		t.Fatalf("7*35 = %s, want 245", prod.String())
	}
}

func TestFieldBytesRoundTrip(t *testing.T) {
	want := FieldFromUint64(123456789)
	b := want.Bytes()
	got := FieldFromBytes(b[:])
	if want.Cmp(got) != 0 {
		t.Fatalf("round trip mismatch: %s != %s", want, got)
	}
}

func TestFieldLessAndCmp(t *testing.T) {
	a := FieldFromUint64(1)
	b := FieldFromUint64(2)

	if !a.Less(b) {
		t.Fatal("expected 1 < 2")
	}
	if b.Less(a) {
		t.Fatal("expected 2 not < 1")
	}
	if a.Cmp(a) != 0 {
		t.Fatal("expected a == a")
	}
}

func TestFieldXorIsSelfInverse(t *testing.T) {
	a := FieldFromUint64(9001)
	b := FieldFromUint64(42)

	x := a.Xor(b)
	back := x.Xor(b)
	if back.Cmp(a) != 0 {
		t.Fatalf("xor round trip failed: got %s want %s", back, a)
	}
}

func TestFieldIsZero(t *testing.T) {
	if !FieldFromUint64(0).IsZero() {
		t.Fatal("expected zero field element to report IsZero")
	}
	if FieldFromUint64(1).IsZero() {
		t.Fatal("expected nonzero field element to not report IsZero")
	}
}
