package crypto

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func fixedSigma() SigmaParams {
	modulus, _ := new(big.Int).SetString(
		"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	return DeriveSigma(0.5, 1000, modulus, 128)
}

func TestNewCoinInsertsIntoTree(t *testing.T) {
	tree := NewMerkleTree(4)
	coin, err := NewCoin(uint256.NewInt(500), fixedSigma(), tree)
	if err != nil {
		t.Fatalf("NewCoin: %v", err)
	}
	if coin.LeafIndex() != 0 {
		t.Fatalf("leaf index = %d, want 0", coin.LeafIndex())
	}
	if coin.MerkleRoot.Cmp(tree.Root()) != 0 {
		t.Fatal("coin merkle root does not match tree root after insertion")
	}
}

func TestCoinYAndTargetAreDeterministic(t *testing.T) {
	tree := NewMerkleTree(4)
	coin, err := NewCoin(uint256.NewInt(500), fixedSigma(), tree)
	if err != nil {
		t.Fatalf("NewCoin: %v", err)
	}

	y1 := coin.Y()
	y2 := coin.Y()
	if y1.Cmp(y2) != 0 {
		t.Fatal("expected Y() to be deterministic for a fixed coin")
	}

	target1 := coin.Target()
	target2 := coin.Target()
	if target1.Cmp(target2) != 0 {
		t.Fatal("expected Target() to be deterministic for a fixed coin")
	}

	// Wins() is just y < target, re-derived each call; must agree with
	// itself across repeated invocations (determinism property, §8).
	if coin.Wins() != coin.Wins() {
		t.Fatal("expected Wins() to be deterministic")
	}
}

func TestCoinSerialDependsOnSecrets(t *testing.T) {
	tree := NewMerkleTree(4)
	c1, err := NewCoin(uint256.NewInt(10), fixedSigma(), tree)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := NewCoin(uint256.NewInt(10), fixedSigma(), tree)
	if err != nil {
		t.Fatal(err)
	}
	// Two freshly minted coins draw independent random secrets, so their
	// serials must not collide (overwhelmingly likely, not guaranteed,
	// but this is the expected behavior under correct randomness).
	if c1.Serial().Cmp(c2.Serial()) == 0 {
		t.Fatal("expected independently minted coins to have distinct serials")
	}
}
