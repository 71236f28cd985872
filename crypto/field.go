// Package crypto implements the cryptographic primitives the consensus
// core is built on: field arithmetic over the bn254 scalar field, a
// domain hash, Pedersen-style commitments, Schnorr signatures, and a
// fixed-depth Merkle tree of commitments.
package crypto

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// FieldElement is an element of the bn254 scalar field, the field the
// spec's P constant names. All consensus arithmetic on sigma values,
// coin attributes, eta and lottery outputs happens in this field.
type FieldElement struct {
	inner fr.Element
}

// FieldFromUint64 returns the field element for a small non-negative integer.
func FieldFromUint64(v uint64) FieldElement {
	var e fr.Element
	e.SetUint64(v)
	return FieldElement{inner: e}
}

// FieldFromBigInt reduces v modulo the field order and returns the result.
func FieldFromBigInt(v *big.Int) FieldElement {
	var e fr.Element
	e.SetBigInt(v)
	return FieldElement{inner: e}
}

// FieldFromBytes interprets b as a big-endian integer and reduces it
// modulo the field order. Used to turn a 32-byte digest (with its top
// two bytes zeroed by the caller, per the eta derivation rule) into a
// field element.
func FieldFromBytes(b []byte) FieldElement {
	var e fr.Element
	e.SetBytes(b)
	return FieldElement{inner: e}
}

// Bytes returns the canonical big-endian encoding of f.
func (f FieldElement) Bytes() [32]byte {
	return f.inner.Bytes()
}

// BigInt returns f as a big.Int in [0, P).
func (f FieldElement) BigInt() *big.Int {
	res := new(big.Int)
	f.inner.BigInt(res)
	return res
}

// Add returns f + g.
func (f FieldElement) Add(g FieldElement) FieldElement {
	var r fr.Element
	r.Add(&f.inner, &g.inner)
	return FieldElement{inner: r}
}

// Mul returns f * g.
func (f FieldElement) Mul(g FieldElement) FieldElement {
	var r fr.Element
	r.Mul(&f.inner, &g.inner)
	return FieldElement{inner: r}
}

// Square returns f * f.
func (f FieldElement) Square() FieldElement {
	var r fr.Element
	r.Square(&f.inner)
	return FieldElement{inner: r}
}

// Xor returns the bytewise XOR of f and g's canonical encodings, reduced
// back into the field. Used for the H(sk_root,nonce) ⊕ G·y_mu step of
// the lottery (§4.3): the spec treats the two hash/commitment outputs
// as bitstrings before the final hash absorbs them.
func (f FieldElement) Xor(g FieldElement) FieldElement {
	a := f.Bytes()
	b := g.Bytes()
	var out [32]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return FieldFromBytes(out[:])
}

// Cmp compares f and g as integers in [0, P): -1, 0, +1.
func (f FieldElement) Cmp(g FieldElement) int {
	return f.inner.Cmp(&g.inner)
}

// Less reports whether f < g as integers.
func (f FieldElement) Less(g FieldElement) bool {
	return f.Cmp(g) < 0
}

// IsZero reports whether f is the additive identity.
func (f FieldElement) IsZero() bool {
	return f.inner.IsZero()
}

// String returns the decimal representation of f.
func (f FieldElement) String() string {
	return f.inner.String()
}
