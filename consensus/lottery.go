package consensus

import "github.com/dusklot/valcore/crypto"

// LotteryResult is the outcome of evaluating a slot's competing coins
// (§4.3).
type LotteryResult struct {
	Won   bool
	Index int
}

// RunLottery evaluates every competing coin at coins[relativeSlot] and
// returns whether any wins, selecting the winner with the largest
// value (first-seen wins ties), per §4.3.
func RunLottery(matrix CoinMatrix, relativeSlot uint64) LotteryResult {
	if relativeSlot >= uint64(len(matrix)) {
		return LotteryResult{Won: false, Index: -1}
	}
	competitors := matrix[relativeSlot]

	bestIdx := -1
	var bestValue crypto.FieldElement
	won := false

	for i, coin := range competitors {
		if !coin.Wins() {
			continue
		}
		v := coin.ValueField()
		if !won || bestValue.Less(v) {
			won = true
			bestIdx = i
			bestValue = v
		}
	}

	return LotteryResult{Won: won, Index: bestIdx}
}
