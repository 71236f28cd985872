package consensus

import (
	"golang.org/x/crypto/sha3"

	"github.com/dusklot/valcore/crypto"
)

// Hash is a 32-byte binding digest, used for header_hash, genesis_hash,
// and transaction IDs.
type Hash [32]byte

// Header carries the fields bound by header_hash (§3).
type Header struct {
	PreviousHash Hash
	Epoch        uint64
	Slot         uint64
	Timestamp    uint64
	TxMerkleRoot crypto.FieldElement
}

// ComputeHeaderHash recomputes the binding digest of a header. This is
// the "recompute(header)" referenced in §4.6 step 3; a received
// proposal's HeaderHash must equal this value exactly.
func ComputeHeaderHash(h Header) Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write(h.PreviousHash[:])
	d.Write(uint64ToBytes(h.Epoch))
	d.Write(uint64ToBytes(h.Slot))
	d.Write(uint64ToBytes(h.Timestamp))
	rootBytes := h.TxMerkleRoot.Bytes()
	d.Write(rootBytes[:])

	var out Hash
	copy(out[:], d.Sum(nil))
	return out
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// CoinPublicInputs is the publicly known half of a LeadCoin: everything
// a peer needs to check a proposal's leader proof and to track a
// participant's coin across slots, without learning the coin's secrets
// (nonce, sk_root, y_mu).
type CoinPublicInputs struct {
	MerkleRoot      crypto.FieldElement
	Sigma1          crypto.FieldElement
	Sigma2          crypto.FieldElement
	ValueCommitment crypto.FieldElement
}

// coinPublicInputsFromCoin projects a LeadCoin down to its public half.
func coinPublicInputsFromCoin(c crypto.LeadCoin) CoinPublicInputs {
	return CoinPublicInputs{
		MerkleRoot:      c.MerkleRoot,
		Sigma1:          c.Sigma1,
		Sigma2:          c.Sigma2,
		ValueCommitment: c.ValueField(),
	}
}

// Equal reports whether two CoinPublicInputs values are identical,
// used by the validator's §4.6 step 4 check.
func (p CoinPublicInputs) Equal(o CoinPublicInputs) bool {
	return p.MerkleRoot.Cmp(o.MerkleRoot) == 0 &&
		p.Sigma1.Cmp(o.Sigma1) == 0 &&
		p.Sigma2.Cmp(o.Sigma2) == 0 &&
		p.ValueCommitment.Cmp(o.ValueCommitment) == 0
}

// LeaderProof is the zero-knowledge proof a leader attaches to a
// proposal (§1: "the concrete ZK circuit implementation" is an external
// collaborator; the core only consumes this interface).
type LeaderProof interface {
	// Verify checks the proof against the claimed public inputs, the
	// epoch eta used for this slot's lottery, and the circuit parameter
	// k (§6: LEADER_PROOF_K) both sides must agree on.
	Verify(vk VerifyingKey, publicInputs CoinPublicInputs, eta crypto.FieldElement, k uint64) bool
	// Bytes returns an opaque serialized form, used to derive the next
	// epoch's eta (§4.2: "derived from ... the last leader-proof hash").
	Bytes() []byte
}

// VerifyingKey is an opaque handle to the leader circuit's verifying
// key; ValidatorState holds one alongside its proving key (§3).
type VerifyingKey struct {
	Bytes []byte
}

// ProvingKey is an opaque handle to the leader circuit's proving key.
type ProvingKey struct {
	Bytes []byte
}

// Metadata carries everything a proposal needs for validation beyond
// the header and transactions (§3).
type Metadata struct {
	Signature              []byte
	ProposerPublicKey       crypto.PublicKey
	CoinPublicInputs        CoinPublicInputs
	NewCoinPublicInputs     CoinPublicInputs // §9 coin evolution seam; currently == CoinPublicInputs
	WinningIndex            int
	CoinSerial              crypto.FieldElement
	EpochEtaBytes           [32]byte
	LeaderProof             LeaderProof
	ParticipantsSnapshot    []Participant
}

// Transaction is the unit the mempool holds and the transaction
// verifier processes (§4.7). Calls is the sequence of contract
// invocations the transaction is composed of. Signatures holds one
// Schnorr signature over ID per public key the transaction's calls
// collectively declare in their metadata's sig_publics table, in the
// order those calls are executed -- the darkfi original's
// tx.verify_sigs(sig_table) checked against the transaction's own
// attached signatures, not a well-formedness check on the public keys
// alone.
type Transaction struct {
	ID         Hash
	Calls      []Call
	Signatures [][]byte
}

// Call is a single contract invocation within a transaction.
type Call struct {
	ContractID [32]byte
	CallData   []byte
}

// BlockProposal is the unit gossiped between validators and appended to
// ProposalChains (§3).
type BlockProposal struct {
	Header     Header
	Txs        []Transaction
	Metadata   Metadata
	HeaderHash Hash
}

// ProposalChain is a non-empty ordered sequence of BlockProposals
// sharing a common ancestor hash (§3, §4.5).
type ProposalChain []BlockProposal

// Clone returns a value copy of the chain, matching §9's "Clones of
// ProposalChain during fork detection are value copies, not shared
// references."
func (c ProposalChain) Clone() ProposalChain {
	clone := make(ProposalChain, len(c))
	copy(clone, c)
	return clone
}

// Equal reports whether two chains hold the same proposal sequence by
// header hash, the comparison §4.5 calls for ("Chain equality for
// pruning uses the entire proposal sequence").
func (c ProposalChain) Equal(o ProposalChain) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i].HeaderHash != o[i].HeaderHash {
			return false
		}
	}
	return true
}

// Participant is a registered validator identity and its known,
// publicly-tracked per-slot coin state (§3).
type Participant struct {
	PublicKey crypto.PublicKey
	Digest    [32]byte
	// Coins is indexed by relative slot; each entry is the set of
	// competing coins' public inputs known for that slot this epoch.
	Coins [][]CoinPublicInputs
}

// PublicKeyDigest returns the 32-byte digest a Participant is keyed by
// (§3 invariant 3: "participants[k].public_key digests to k").
func PublicKeyDigest(pk crypto.PublicKey) [32]byte {
	sum := sha3.Sum256(pk.Bytes())
	return sum
}
