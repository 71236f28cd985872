package consensus

import (
	"testing"

	"github.com/dusklot/valcore/crypto"
)

func TestEpochCoinGeneratorProducesEpochLengthSlots(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochLength = 5
	cfg.MerkleDepth = 4

	gen := NewEpochCoinGenerator(cfg, nil)
	matrix, _, err := gen.Generate(0, [32]byte{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(matrix) != int(cfg.EpochLength) {
		t.Fatalf("len(coins) = %d, want %d", len(matrix), cfg.EpochLength)
	}
	for slot, competitors := range matrix {
		if len(competitors) == 0 {
			t.Fatalf("coins[%d] is empty, want non-empty", slot)
		}
	}
}

func TestDeriveEtaZeroesTopTwoBytes(t *testing.T) {
	var proofHash [32]byte
	for i := range proofHash {
		proofHash[i] = 0xFF
	}
	eta := DeriveEta(proofHash)

	var zeroed [32]byte
	for i := range zeroed {
		zeroed[i] = 0xFF
	}
	zeroed[0] = 0
	zeroed[1] = 0
	want := crypto.FieldFromBytes(zeroed[:])

	if eta.Cmp(want) != 0 {
		t.Fatal("eta did not zero the top two bytes before field reduction")
	}
}

func TestDefaultStakeOracleStubs(t *testing.T) {
	oracle := DefaultStakeOracle{Reward: 777}
	if oracle.Frequency(0) != 0.5 {
		t.Fatalf("Frequency = %v, want 0.5", oracle.Frequency(0))
	}
	if oracle.TotalStake(0, 0) != 777 {
		t.Fatalf("TotalStake = %d, want 777", oracle.TotalStake(0, 0))
	}
}
