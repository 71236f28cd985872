package consensus

import (
	"fmt"

	"github.com/dusklot/valcore/crypto"
	"github.com/dusklot/valcore/runtime"
)

// ReceiveProposal implements steps 2-10 of §4.6, the proposal validation
// and fork-set admission sequence. cs is mutated in place on success;
// callers (ValidatorState.ReceiveProposal) are responsible for holding
// the exclusive lock around the whole call (§5).
//
// Step 1 (the participating gate) is checked by ValidatorState, which
// owns the participating flag. A proposal whose proposer is not a known
// participant is rejected with ErrUnknownNode (step 2). Finalization is
// not attempted here; ValidatorState.ReceiveProposal runs it after this
// function succeeds.
func ReceiveProposal(
	cs *ConsensusState,
	vk VerifyingKey,
	cfg Config,
	loader runtime.BincodeLoader,
	factory runtime.Factory,
	p BlockProposal,
) error {
	digest := PublicKeyDigest(p.Metadata.ProposerPublicKey)

	participant, ok := cs.Participant(digest)
	if !ok {
		// step 2: the proposer must be a known participant.
		return ErrUnknownNode
	}

	// step 3: header hash must match what the proposer claims.
	if ComputeHeaderHash(p.Header) != p.HeaderHash {
		return ErrHeaderMismatch
	}

	// step 4: the proposal's coin public inputs must match what we
	// recorded for this participant at (relative_slot, winning_index).
	relSlot := p.Header.Slot % cfg.EpochLength
	known, ok := cs.CoinPublicInputsAt(digest, relSlot, p.Metadata.WinningIndex)
	if !ok || !known.Equal(p.Metadata.CoinPublicInputs) {
		return ErrInvalidPublicInputs
	}

	// step 5: leader proof must verify against eta.
	eta := crypto.FieldFromBytes(p.Metadata.EpochEtaBytes[:])
	if !p.Metadata.LeaderProof.Verify(vk, p.Metadata.CoinPublicInputs, eta, cfg.LeaderProofK) {
		return ErrLeaderProofFailure
	}

	// step 6: header signature must verify against the claimed proposer key.
	if err := crypto.Verify(p.Metadata.ProposerPublicKey, p.HeaderHash, p.Metadata.Signature); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	// The winning coin serial must not have been spent already this
	// epoch (§9.1 resolution 2).
	if !cs.CheckAndRecordSerial(p.Metadata.CoinSerial) {
		return ErrInvalidPublicInputs
	}

	// step 7: the proposal must extend some known chain, the canonical
	// tip, or fork a known chain.
	chainIndex := cs.Forks.FindExtendedChainIndex(p)
	if chainIndex == NoMatch {
		return ErrUnknownExtension
	}

	// step 8: every transaction in the proposal must verify.
	if err := VerifyTransactions(p.Txs, loader, factory); err != nil {
		return err
	}

	// step 9: record the participant's next coin public inputs.
	cs.SetCoinPublicInputsAt(digest, relSlot, p.Metadata.WinningIndex, p.Metadata.NewCoinPublicInputs, cfg.EpochLength)
	cs.AppendParticipant(*participant)

	// step 10: admit the proposal to the fork set (finalization is left
	// to the caller).
	if chainIndex == ExtendsCanonicalTip {
		cs.Forks.NewChain(p)
	} else {
		cs.Forks.AppendToChain(chainIndex, p)
	}

	return nil
}
