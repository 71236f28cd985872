package consensus

import (
	"github.com/dusklot/valcore/crypto"
)

// BuildProposal assembles a block proposal per §4.4, given that
// is_slot_leader already returned (true, winningIndex) for this slot.
// It does not touch any shared ValidatorState; callers (ValidatorState.Propose)
// are responsible for acquiring the write lock around the whole
// operation and for staging/committing the result (build-then-commit,
// §5). No reward transaction is synthesized for the winning leader;
// reward issuance is not implemented here.

func BuildProposal(
	sk *crypto.SigningKey,
	pk ProvingKey,
	previousHash Hash,
	epoch uint64,
	slot uint64,
	now uint64,
	txs []Transaction,
	coin crypto.LeadCoin,
	winningIndex int,
	eta crypto.FieldElement,
	merkleDepth int,
	leaderProofK uint64,
) (BlockProposal, error) {
	root := txMerkleRoot(txs, merkleDepth)

	header := Header{
		PreviousHash: previousHash,
		Epoch:        epoch,
		Slot:         slot,
		Timestamp:    now,
		TxMerkleRoot: root,
	}
	headerHash := ComputeHeaderHash(header)

	sig, err := sk.Sign(headerHash)
	if err != nil {
		return BlockProposal{}, err
	}

	publicInputs := coinPublicInputsFromCoin(coin)
	proof := ProveLeader(pk, publicInputs, eta, leaderProofK)

	var etaBytes [32]byte
	eb := eta.Bytes()
	copy(etaBytes[:], eb[:])

	md := Metadata{
		Signature:           sig,
		ProposerPublicKey:   sk.Public(),
		CoinPublicInputs:    publicInputs,
		NewCoinPublicInputs: publicInputs, // §9: coin evolution not yet implemented, same coin reused
		WinningIndex:        winningIndex,
		CoinSerial:          coin.Serial(),
		EpochEtaBytes:       etaBytes,
		LeaderProof:         proof,
	}

	return BlockProposal{
		Header:     header,
		Txs:        txs,
		Metadata:   md,
		HeaderHash: headerHash,
	}, nil
}

// txMerkleRoot computes the Merkle root over transaction IDs, the §4.4
// step 3 "transaction Merkle root over output commitments" (this
// implementation treats a transaction's ID as its output commitment;
// the concrete output-commitment scheme belongs to the contract
// runtime, an external collaborator, §1).
func txMerkleRoot(txs []Transaction, merkleDepth int) crypto.FieldElement {
	leaves := make([]crypto.FieldElement, len(txs))
	for i, tx := range txs {
		leaves[i] = crypto.FieldFromBytes(tx.ID[:])
	}
	return crypto.RootFromLeaves(merkleDepth, leaves)
}

// UnproposedTransactions returns the subset of mempool not already
// present anywhere along chain, per §4.4 step 2 ("mempool minus
// transactions already present anywhere along the chosen chain").
func UnproposedTransactions(mempool []Transaction, chain ProposalChain) []Transaction {
	seen := make(map[Hash]struct{})
	for _, p := range chain {
		for _, tx := range p.Txs {
			seen[tx.ID] = struct{}{}
		}
	}

	out := make([]Transaction, 0, len(mempool))
	for _, tx := range mempool {
		if _, ok := seen[tx.ID]; ok {
			continue
		}
		out = append(out, tx)
	}
	return out
}
