package crypto

import (
	"math/big"

	"github.com/ALTree/bigfloat"
)

// SigmaParams holds the per-epoch lottery parameters derived in §4.2.
type SigmaParams struct {
	Sigma1 FieldElement
	Sigma2 FieldElement
}

// DeriveSigma computes sigma1/sigma2 from the winning frequency of the
// prior epoch and the total stake, at the given decimal precision
// (RADIX_BITS) and field modulus P (the spec's §6 configuration
// constants). All intermediate arithmetic uses arbitrary-precision
// decimals so the ln(1-frequency) step does not lose precision before
// reduction into the field, matching §4.2's "arbitrary-precision
// decimals with a fixed radix precision" requirement.
//
//	c      = ln(1 - frequency)           (negative)
//	sigma1 = (c / total_stake) * P
//	sigma2 = (c / total_stake)^2 * (P / 2)
func DeriveSigma(frequency float64, totalStake uint64, modulus *big.Int, radixBits uint) SigmaParams {
	prec := radixBits
	if prec == 0 {
		prec = 128
	}

	one := new(big.Float).SetPrec(prec).SetInt64(1)
	freq := new(big.Float).SetPrec(prec).SetFloat64(frequency)
	oneMinusFreq := new(big.Float).SetPrec(prec).Sub(one, freq)

	c := bigfloat.Log(oneMinusFreq) // negative: ln(1-frequency)

	stake := new(big.Float).SetPrec(prec).SetUint64(totalStake)
	cOverStake := new(big.Float).SetPrec(prec).Quo(c, stake)

	pFloat := new(big.Float).SetPrec(prec).SetInt(modulus)

	sigma1 := new(big.Float).SetPrec(prec).Mul(cOverStake, pFloat)

	cOverStakeSq := new(big.Float).SetPrec(prec).Mul(cOverStake, cOverStake)
	half := new(big.Float).SetPrec(prec).Quo(pFloat, big.NewFloat(2))
	sigma2 := new(big.Float).SetPrec(prec).Mul(cOverStakeSq, half)

	return SigmaParams{
		Sigma1: FieldFromBigInt(floatToFieldInt(sigma1, modulus)),
		Sigma2: FieldFromBigInt(floatToFieldInt(sigma2, modulus)),
	}
}

// floatToFieldInt reduces a (possibly negative) arbitrary-precision
// float into [0, modulus) by truncating to an integer and taking the
// Euclidean remainder. sigma1/sigma2 are conceptually negative (c is
// negative) but the spec treats them as field elements, so negative
// values wrap around modulo P exactly like two's-complement-free
// modular reduction would.
func floatToFieldInt(f *big.Float, modulus *big.Int) *big.Int {
	i := new(big.Int)
	f.Int(i)
	i.Mod(i, modulus)
	if i.Sign() < 0 {
		i.Add(i, modulus)
	}
	return i
}
