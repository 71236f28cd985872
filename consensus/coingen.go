package consensus

import (
	"github.com/holiman/uint256"

	"github.com/dusklot/valcore/crypto"
)

// StakeOracle is the seam around the spec's two stubbed quantities,
// get_frequency and total_stake (§4.2, §9 open question 1, §9.1
// resolution 1). DefaultStakeOracle reproduces the spec's current
// stubbed behavior exactly; a real staking implementation can
// substitute its own.
type StakeOracle interface {
	// Frequency returns the prior epoch's winning density, in (0,1).
	Frequency(epoch uint64) float64
	// TotalStake returns the total stake active for (epoch, slot).
	TotalStake(epoch uint64, slot uint64) uint64
}

// DefaultStakeOracle implements the spec's stub values: a constant
// 0.5 frequency and a constant Reward total stake.
type DefaultStakeOracle struct {
	Reward uint64
}

// Frequency always returns 0.5, per §4.2.
func (DefaultStakeOracle) Frequency(epoch uint64) float64 { return 0.5 }

// TotalStake always returns the configured Reward constant, per §4.2.
func (o DefaultStakeOracle) TotalStake(epoch uint64, slot uint64) uint64 { return o.Reward }

// CoinMatrix is coins[slot_in_epoch][competing_coin_index] (§3). The
// current policy (§4.2) always emits exactly one competing coin per
// slot, but the shape allows more.
type CoinMatrix [][]crypto.LeadCoin

// EpochCoinGenerator recomputes an epoch's lottery parameters and coin
// matrix (§4.2). It holds no state of its own; ConsensusState owns the
// resulting CoinMatrix and eta.
type EpochCoinGenerator struct {
	cfg    Config
	oracle StakeOracle
}

// NewEpochCoinGenerator returns a generator using cfg's RadixBits/
// MerkleDepth/FieldModulus and the given stake oracle.
func NewEpochCoinGenerator(cfg Config, oracle StakeOracle) *EpochCoinGenerator {
	if oracle == nil {
		oracle = DefaultStakeOracle{Reward: cfg.Reward}
	}
	return &EpochCoinGenerator{cfg: cfg, oracle: oracle}
}

// DeriveEta zeroes the top two bytes of lastProofHash and reads the
// result as a field element, per §4.2: "eta is derived from the
// canonical chain's last leader-proof hash by zeroing its top two bytes
// (yielding a <=254-bit value) and reading it as a field element."
func DeriveEta(lastProofHash [32]byte) crypto.FieldElement {
	b := lastProofHash
	b[0] = 0
	b[1] = 0
	return crypto.FieldFromBytes(b[:])
}

// Generate recomputes sigma1/sigma2 and mints a fresh coin matrix for
// the given epoch. This is called whenever current_epoch() > state.epoch
// (§4.2).
func (g *EpochCoinGenerator) Generate(epoch uint64, lastProofHash [32]byte) (CoinMatrix, crypto.FieldElement, error) {
	frequency := g.oracle.Frequency(epoch)

	eta := DeriveEta(lastProofHash)

	matrix := make(CoinMatrix, g.cfg.EpochLength)
	modulus := g.cfg.Modulus()

	// One commitment tree for the whole epoch: every slot's coin is
	// inserted into it (§4.2).
	tree := crypto.NewMerkleTree(g.cfg.MerkleDepth)

	for slot := uint64(0); slot < g.cfg.EpochLength; slot++ {
		// total_stake only fine-tunes sigma1/sigma2; it is not the
		// minted coin's value. Per §4.2/the original create_coins
		// ("Temporarily, we compete with zero stake"), every coin is
		// minted with LotteryHeadStart as its value.
		totalStake := g.oracle.TotalStake(epoch, slot)
		sigma := crypto.DeriveSigma(frequency, totalStake, modulus, g.cfg.RadixBits)

		coin, err := crypto.NewCoin(uint256.NewInt(g.cfg.LotteryHeadStart), sigma, tree)
		if err != nil {
			return nil, crypto.FieldElement{}, err
		}
		matrix[slot] = []crypto.LeadCoin{coin}
	}

	return matrix, eta, nil
}
