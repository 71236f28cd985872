package crypto

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
)

// Commitment is a Pedersen-style commitment point G·v over the bn254
// curve, used for the coin's y_mu commitment in the lottery (§4.3).
type Commitment struct {
	point bn254.G1Affine
}

// pedersenGenerator returns the fixed bn254 G1 generator used as G
// throughout this package. All commitments share the same generator;
// the spec does not call for a second independent generator (a full
// Pedersen scheme with a blinding generator is out of scope — only the
// single-generator scalar multiplication §4.3 needs).
func pedersenGenerator() bn254.G1Affine {
	_, _, g1Aff, _ := bn254.Generators()
	return g1Aff
}

// Commit returns G·mod_r(scalar), the Pedersen-style commitment to a
// field element used in the lottery's y computation.
func Commit(scalar FieldElement) Commitment {
	g := pedersenGenerator()
	var p bn254.G1Affine
	p.ScalarMultiplication(&g, scalar.BigInt())
	return Commitment{point: p}
}

// HashAffine hashes the commitment's affine (x, y) coordinates with the
// domain hash, the final step of the lottery's y computation (§4.3).
func (c Commitment) HashAffine() FieldElement {
	x := FieldFromBigInt(c.point.X.BigInt(new(big.Int)))
	y := FieldFromBigInt(c.point.Y.BigInt(new(big.Int)))
	return DomainHash(x, y)
}
