package consensus

import (
	"github.com/dusklot/valcore/crypto"
)

// SimulatedLeaderProof is a reference LeaderProof: it binds a coin's
// public inputs and the epoch eta into a digest using the verifying/
// proving key bytes as a simulated circuit, in the same spirit as this
// codebase's other simulated-pairing-check primitives. The spec treats
// the real leader circuit as an external collaborator (§1); this type
// lets ValidatorState exercise the full propose/verify pipeline without
// one.
type SimulatedLeaderProof struct {
	digest crypto.FieldElement
}

// ProveLeader produces a SimulatedLeaderProof for the given coin's
// public inputs, eta, and the leader circuit parameter k (§6:
// LEADER_PROOF_K), using pk as the (opaque) proving key material.
func ProveLeader(pk ProvingKey, publicInputs CoinPublicInputs, eta crypto.FieldElement, k uint64) SimulatedLeaderProof {
	return SimulatedLeaderProof{
		digest: leaderProofDigest(pk.Bytes, publicInputs, eta, k),
	}
}

// Verify implements LeaderProof.
func (p SimulatedLeaderProof) Verify(vk VerifyingKey, publicInputs CoinPublicInputs, eta crypto.FieldElement, k uint64) bool {
	want := leaderProofDigest(vk.Bytes, publicInputs, eta, k)
	return p.digest.Cmp(want) == 0
}

// Bytes implements LeaderProof, returning the proof's canonical
// encoding -- used to derive the next epoch's eta (§4.2).
func (p SimulatedLeaderProof) Bytes() []byte {
	b := p.digest.Bytes()
	return b[:]
}

// leaderProofDigest binds key material, the coin's public inputs, eta,
// and the circuit parameter k into a single field element. A real
// circuit would prove knowledge of the coin's secrets satisfying this
// relation in zero-knowledge, parameterized by k (e.g. a constraint
// count/lookup-table size); here prover and verifier both compute the
// same binding directly, keyed by matching proving/verifying key bytes
// and k, so a k mismatch between prover and verifier is caught the same
// way a real circuit's parameter mismatch would surface as a proof
// failure.
func leaderProofDigest(keyBytes []byte, publicInputs CoinPublicInputs, eta crypto.FieldElement, k uint64) crypto.FieldElement {
	keyField := crypto.FieldFromBytes(padTo32(keyBytes))
	return crypto.DomainHash(
		keyField,
		publicInputs.MerkleRoot,
		publicInputs.Sigma1,
		publicInputs.Sigma2,
		publicInputs.ValueCommitment,
		eta,
		crypto.FieldFromUint64(k),
	)
}

func padTo32(b []byte) []byte {
	if len(b) >= 32 {
		return b[:32]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// MatchingLeaderKeyPair returns a proving/verifying key pair that
// verify against each other (SimulatedLeaderProof treats them as equal
// opaque bytes, unlike a real asymmetric proving system -- the spec's
// ZK circuit itself is external, §1).
func MatchingLeaderKeyPair(seed []byte) (ProvingKey, VerifyingKey) {
	key := make([]byte, len(seed))
	copy(key, seed)
	return ProvingKey{Bytes: key}, VerifyingKey{Bytes: key}
}
