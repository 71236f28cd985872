// Package node implements ValidatorState, the top-level owner of a
// validator's consensus data (§3, §5). It is the single writer/multiple
// reader object that mediates every operation the consensus core
// exposes: mempool management, epoch rollover, the leader lottery,
// proposal construction, proposal admission, and finalization.
//
// ValidatorState itself holds no domain logic -- that lives in package
// consensus -- it only owns the data, the lock, and the external
// collaborator handles (§3: "ValidatorState exclusively owns all
// consensus data; access is mediated by a single writers/multiple
// readers lock").
package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/dusklot/valcore/consensus"
	"github.com/dusklot/valcore/crypto"
	"github.com/dusklot/valcore/log"
	"github.com/dusklot/valcore/runtime"
)

var logger = log.Default().Module("validator")

// ConsensusRequest is the state-sync request message named in §6: a
// peer asking for everything this node knows about a given public key.
type ConsensusRequest struct {
	PublicKey crypto.PublicKey
}

// ConsensusResponse is the state-sync reply named in §6: a snapshot of
// unfinalized proposal chains and known participants.
type ConsensusResponse struct {
	Proposals    []consensus.ProposalChain
	Participants []consensus.Participant
}

// ValidatorState owns the Consensus State, the keypair, the mempool,
// the participating-from-slot flag, the Canonical Chain Gateway handle,
// and the leader circuit's proving/verifying keys (§3). All mutating
// operations take the write half of mu; read-only queries take the
// read half (§5).
type ValidatorState struct {
	mu sync.RWMutex

	cfg   consensus.Config
	clock *consensus.SlotClock

	state  *consensus.ConsensusState
	coinGen *consensus.EpochCoinGenerator

	sk *crypto.SigningKey

	mempool []consensus.Transaction

	// participating holds the first slot at which this node begins
	// validating, or -1 if unset (§4.6 step 1, §3).
	participating int64

	gateway       consensus.Gateway
	bincodeLoader runtime.BincodeLoader
	runtimeFactory runtime.Factory

	provingKey   consensus.ProvingKey
	verifyingKey consensus.VerifyingKey

	events *EventBus
}

// Config bundles the constructor arguments New needs beyond the shared
// consensus.Config, mirroring this package's earlier Node constructor
// shape (a single struct of wiring, not positional args).
type Config struct {
	Consensus    consensus.Config
	GenesisTS    uint64
	GenesisHash  consensus.Hash
	SigningKey   *crypto.SigningKey
	Gateway      consensus.Gateway
	BincodeLoader runtime.BincodeLoader
	RuntimeFactory runtime.Factory
	ProvingKey   consensus.ProvingKey
	VerifyingKey consensus.VerifyingKey
	StakeOracle  consensus.StakeOracle // nil uses consensus.DefaultStakeOracle
	EventBufferSize int
}

// New constructs a ValidatorState anchored at genesis, with an empty
// mempool and participant set. It validates cfg.Consensus the same way
// this codebase's other constructors validate their config (§2.1).
func New(cfg Config) (*ValidatorState, error) {
	if err := cfg.Consensus.Validate(); err != nil {
		return nil, fmt.Errorf("node: invalid consensus config: %w", err)
	}
	if cfg.SigningKey == nil {
		return nil, fmt.Errorf("node: SigningKey is required")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("node: Gateway is required")
	}

	vs := &ValidatorState{
		cfg:            cfg.Consensus,
		clock:          consensus.NewSlotClockFromConfig(cfg.Consensus, cfg.GenesisTS),
		state:          consensus.NewConsensusState(cfg.GenesisTS, cfg.GenesisHash),
		coinGen:        consensus.NewEpochCoinGenerator(cfg.Consensus, cfg.StakeOracle),
		sk:             cfg.SigningKey,
		participating:  -1,
		gateway:        cfg.Gateway,
		bincodeLoader:  cfg.BincodeLoader,
		runtimeFactory: cfg.RuntimeFactory,
		provingKey:     cfg.ProvingKey,
		verifyingKey:   cfg.VerifyingKey,
		events:         NewEventBus(cfg.EventBufferSize),
	}

	digest := consensus.PublicKeyDigest(cfg.SigningKey.Public())
	vs.state.AppendParticipant(consensus.Participant{
		PublicKey: cfg.SigningKey.Public(),
		Digest:    digest,
	})

	return vs, nil
}

// Events returns the event bus ValidatorState publishes domain
// transitions on (§4.9). Subscribers never block a mutating operation.
func (vs *ValidatorState) Events() *EventBus {
	return vs.events
}

// CurrentSlot returns the current slot relative to genesis (§4.1,
// read-only per §5).
func (vs *ValidatorState) CurrentSlot() uint64 {
	return vs.clock.CurrentSlot()
}

// ProposalExists reports whether a proposal with the given header hash
// is present in any unfinalized fork chain or the canonical chain
// (read-only per §5).
func (vs *ValidatorState) ProposalExists(hash consensus.Hash) (bool, error) {
	vs.mu.RLock()
	chains := vs.state.Forks.Chains()
	vs.mu.RUnlock()

	for _, chain := range chains {
		for _, p := range chain {
			if p.HeaderHash == hash {
				return true, nil
			}
		}
	}
	return vs.gateway.HasBlock(hash)
}

// LongestChainLastHash delegates to the fork set (read-only per §5).
func (vs *ValidatorState) LongestChainLastHash() (consensus.Hash, int) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.state.Forks.LongestChainLastHash()
}

// SetParticipating records the slot from which this node begins
// validating incoming proposals (§3, §5 mutating operation).
func (vs *ValidatorState) SetParticipating(slot uint64) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.participating = int64(slot)
}

// AppendTx adds tx to the mempool, swallowing all errors as false per
// §7 ("append_tx swallows all errors as false"): a transaction already
// known to the canonical chain is rejected silently.
func (vs *ValidatorState) AppendTx(tx consensus.Transaction) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	known, err := vs.gateway.ContainsTransaction(tx.ID)
	if err != nil || known {
		return false
	}
	for _, existing := range vs.mempool {
		if existing.ID == tx.ID {
			return false
		}
	}

	vs.mempool = append(vs.mempool, tx)
	vs.events.PublishAsync(EventMempoolAdd, tx.ID)
	return true
}

// dropMempoolLocked removes every transaction in txs from the mempool,
// e.g. once a proposal carrying them has been admitted. Must be called
// with mu held.
func (vs *ValidatorState) dropMempoolLocked(txs []consensus.Transaction) {
	if len(txs) == 0 {
		return
	}
	drop := make(map[consensus.Hash]struct{}, len(txs))
	for _, tx := range txs {
		drop[tx.ID] = struct{}{}
	}
	kept := vs.mempool[:0]
	for _, tx := range vs.mempool {
		if _, ok := drop[tx.ID]; ok {
			vs.events.PublishAsync(EventMempoolDrop, tx.ID)
			continue
		}
		kept = append(kept, tx)
	}
	vs.mempool = kept
}

// EpochChanged checks whether the wall clock has rolled into a new
// epoch and, if so, recomputes the lottery parameters and coin matrix
// (§4.2). Per §5's build-then-commit discipline, the gateway's last
// proof hash is fetched and the new matrix is built *before* the write
// lock is taken to commit it, so a canceled context cannot leave
// ConsensusState half-updated.
func (vs *ValidatorState) EpochChanged(ctx context.Context) (bool, error) {
	current := vs.clock.CurrentEpoch()

	vs.mu.RLock()
	stateEpoch := vs.state.Epoch
	vs.mu.RUnlock()

	if current <= stateEpoch && !(stateEpoch == 0 && vs.hasNeverGenerated()) {
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	lastProofHash, err := vs.gateway.LastProofHash()
	if err != nil {
		return false, fmt.Errorf("%w: %w", consensus.ErrGateway, err)
	}

	matrix, eta, err := vs.coinGen.Generate(current, lastProofHash)
	if err != nil {
		return false, err
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	vs.mu.Lock()
	vs.state.ApplyEpochChange(current, matrix, eta)
	vs.mu.Unlock()

	logger.Info("epoch changed", "epoch", current)
	vs.events.PublishAsync(EventEpochChanged, current)
	return true, nil
}

// hasNeverGenerated reports whether Generate has never run (coins
// matrix still empty), used to force the first epoch's coin generation
// even though epoch 0 == state.Epoch's zero value.
func (vs *ValidatorState) hasNeverGenerated() bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.state.Coins == nil
}

// IsSlotLeader runs the lottery for the current slot against this
// node's own coin matrix (§4.3). Deterministic for a fixed ConsensusState,
// per §8's testable property (read-only per §5).
func (vs *ValidatorState) IsSlotLeader() (bool, int) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	slot := vs.clock.CurrentSlot()
	relSlot := vs.clock.RelativeSlot(slot)
	result := consensus.RunLottery(vs.state.Coins, relSlot)
	return result.Won, result.Index
}

// Propose builds a signed, ZK-proven block proposal extending the
// longest known fork (or the canonical tip), per §4.4. Preconditions:
// the caller has already confirmed IsSlotLeader() returned (true, idx)
// this slot and passes idx through. Any failure aborts with no partial
// state published (§4.4 "Failure").
func (vs *ValidatorState) Propose(ctx context.Context, winningIndex int) (*consensus.BlockProposal, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slot := vs.clock.CurrentSlot()
	relSlot := vs.clock.RelativeSlot(slot)
	if int(relSlot) >= len(vs.state.Coins) || winningIndex < 0 || winningIndex >= len(vs.state.Coins[relSlot]) {
		return nil, fmt.Errorf("node: winningIndex %d out of range for slot %d", winningIndex, slot)
	}
	coin := vs.state.Coins[relSlot][winningIndex]

	previousHash, chainIdx := vs.state.Forks.LongestChainLastHash()

	var chain consensus.ProposalChain
	if chainIdx != consensus.ExtendsCanonicalTip {
		chains := vs.state.Forks.Chains()
		chain = chains[chainIdx]
	}
	txs := consensus.UnproposedTransactions(vs.mempool, chain)

	proposal, err := consensus.BuildProposal(
		vs.sk,
		vs.provingKey,
		previousHash,
		vs.clock.SlotEpoch(slot),
		slot,
		vs.clock.SlotStartTime(slot),
		txs,
		coin,
		winningIndex,
		vs.state.EpochEta,
		vs.cfg.MerkleDepth,
		vs.cfg.LeaderProofK,
	)
	if err != nil {
		return nil, err
	}

	digest := consensus.PublicKeyDigest(vs.sk.Public())
	vs.state.SetCoinPublicInputsAt(digest, relSlot, winningIndex, proposal.Metadata.NewCoinPublicInputs, vs.cfg.EpochLength)

	logger.Info("built proposal", "slot", slot, "epoch", proposal.Header.Epoch)
	vs.events.PublishAsync(EventProposalBuilt, proposal.HeaderHash)

	return &proposal, nil
}

// ReceiveProposal validates an incoming proposal and, on success, admits
// it to the fork set, attempting finalization (§4.6). Step 1 of §4.6 (the
// participating gate) is checked here since the participating flag is
// ValidatorState's, not ConsensusState's (§3).
func (vs *ValidatorState) ReceiveProposal(ctx context.Context, p consensus.BlockProposal) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.participating < 0 || p.Header.Slot < uint64(vs.participating) {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := consensus.ReceiveProposal(vs.state, vs.verifyingKey, vs.cfg, vs.bincodeLoader, vs.runtimeFactory, p); err != nil {
		return err
	}

	vs.dropMempoolLocked(p.Txs)
	vs.events.PublishAsync(EventProposalAccepted, p.HeaderHash)

	chainIdx := vs.findChainIndexLocked(p.HeaderHash)
	if chainIdx < 0 {
		return nil
	}
	if _, err := vs.finalizeLocked(ctx, chainIdx); err != nil {
		return err
	}
	return nil
}

// findChainIndexLocked returns the index of the fork chain whose tip is
// hash, or -1. Must be called with mu held.
func (vs *ValidatorState) findChainIndexLocked(hash consensus.Hash) int {
	chains := vs.state.Forks.Chains()
	for i, chain := range chains {
		if chain[len(chain)-1].HeaderHash == hash {
			return i
		}
	}
	return -1
}

// ChainFinalization attempts to finalize the fork chain at index i
// (§4.8). It is a no-op, not an error, when the depth/longest-unique
// rule is not yet met. Exported for direct use by callers that already
// know the chain index (e.g. state-sync replay); ReceiveProposal calls
// the unexported finalizeLocked path automatically.
func (vs *ValidatorState) ChainFinalization(ctx context.Context, i int) ([]consensus.BlockProposal, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.finalizeLocked(ctx, i)
}

// finalizeLocked implements §4.8's drain-then-append-then-prune sequence
// and the re-verification §9 notes as a known redundancy. Must be called
// with mu held (it is itself a mutating operation per §5).
func (vs *ValidatorState) finalizeLocked(ctx context.Context, i int) ([]consensus.BlockProposal, error) {
	finalized, ok := vs.state.Forks.Finalize(i)
	if !ok {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// §4.8: "re-run verify_transactions over each finalized block's
	// transactions (known redundancy -- see §9.1 resolution 5)". This
	// implementation keeps applying state before finalization (§9.1
	// resolution 4), so the redundancy is preserved rather than removed.
	for _, b := range finalized {
		if err := consensus.VerifyTransactions(b.Txs, vs.bincodeLoader, vs.runtimeFactory); err != nil {
			return nil, fmt.Errorf("node: finalization re-verify: %w", err)
		}
	}

	if _, err := vs.gateway.Add(finalized); err != nil {
		return nil, fmt.Errorf("%w: %w", consensus.ErrGateway, err)
	}

	logger.Info("chain finalized", "chain_index", i, "count", len(finalized))
	vs.events.PublishAsync(EventChainFinalized, len(finalized))
	return finalized, nil
}

// ReceiveBlocks admits a batch of already-agreed proposals directly into
// the fork set, bypassing per-proposal validation -- used for state sync
// from a peer's ConsensusResponse (§6), where the blocks were already
// validated by that peer's own consensus run. Each block is still
// required to extend a known chain or the canonical tip.
func (vs *ValidatorState) ReceiveBlocks(resp ConsensusResponse) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	for _, chain := range resp.Proposals {
		for _, p := range chain {
			idx := vs.state.Forks.FindExtendedChainIndex(p)
			switch idx {
			case consensus.NoMatch:
				continue
			case consensus.ExtendsCanonicalTip:
				vs.state.Forks.NewChain(p)
			default:
				vs.state.Forks.AppendToChain(idx, p)
			}
		}
	}
	for _, participant := range resp.Participants {
		vs.state.AppendParticipant(participant)
	}
}

// ReceiveFinalizedBlock appends a single already-finalized block
// directly to the Canonical Chain Gateway, for a peer replaying history
// this node has not seen yet (§6 "BlockProposal as the proposal gossip
// payload" extended to finalized history during sync).
func (vs *ValidatorState) ReceiveFinalizedBlock(block consensus.BlockProposal) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, err := vs.gateway.Add([]consensus.BlockProposal{block}); err != nil {
		return fmt.Errorf("%w: %w", consensus.ErrGateway, err)
	}
	return nil
}

// BuildConsensusResponse snapshots this node's unfinalized fork chains
// and known participants for a peer's ConsensusRequest (§6, read-only
// per §5).
func (vs *ValidatorState) BuildConsensusResponse() ConsensusResponse {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	digests := vs.state.ParticipantOrder()
	participants := make([]consensus.Participant, 0, len(digests))
	for _, d := range digests {
		if p, ok := vs.state.Participant(d); ok {
			participants = append(participants, *p)
		}
	}

	return ConsensusResponse{
		Proposals:    vs.state.Forks.Chains(),
		Participants: participants,
	}
}
