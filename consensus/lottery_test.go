package consensus

import "testing"

func TestRunLotteryOutOfRangeSlotLoses(t *testing.T) {
	result := RunLottery(CoinMatrix{}, 0)
	if result.Won {
		t.Fatal("expected no win for an empty coin matrix")
	}
}

func TestRunLotteryIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochLength = 3
	cfg.MerkleDepth = 4

	gen := NewEpochCoinGenerator(cfg, nil)
	matrix, _, err := gen.Generate(0, [32]byte{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	r1 := RunLottery(matrix, 0)
	r2 := RunLottery(matrix, 0)
	if r1 != r2 {
		t.Fatalf("RunLottery not deterministic: %+v != %+v", r1, r2)
	}
}
