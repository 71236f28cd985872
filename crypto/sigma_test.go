package crypto

import (
	"math/big"
	"testing"
)

func testModulus() *big.Int {
	m, _ := new(big.Int).SetString(
		"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	return m
}

func TestDeriveSigmaIsDeterministic(t *testing.T) {
	modulus := testModulus()

	s1 := DeriveSigma(0.5, 1000, modulus, 128)
	s2 := DeriveSigma(0.5, 1000, modulus, 128)

	if s1.Sigma1.Cmp(s2.Sigma1) != 0 {
		t.Fatal("sigma1 not deterministic for identical inputs")
	}
	if s1.Sigma2.Cmp(s2.Sigma2) != 0 {
		t.Fatal("sigma2 not deterministic for identical inputs")
	}
}

func TestDeriveSigmaVariesWithStake(t *testing.T) {
	modulus := testModulus()

	low := DeriveSigma(0.5, 100, modulus, 128)
	high := DeriveSigma(0.5, 100_000, modulus, 128)

	if low.Sigma1.Cmp(high.Sigma1) == 0 {
		t.Fatal("expected sigma1 to change with total stake")
	}
}

func TestDeriveSigmaWithinField(t *testing.T) {
	modulus := testModulus()
	s := DeriveSigma(0.5, 1000, modulus, 128)

	if s.Sigma1.BigInt().Cmp(modulus) >= 0 {
		t.Fatal("sigma1 must be reduced below the field modulus")
	}
	if s.Sigma1.BigInt().Sign() < 0 {
		t.Fatal("sigma1 must be non-negative once reduced into the field")
	}
}
