package consensus

import (
	"bytes"
	"sort"

	"github.com/dusklot/valcore/crypto"
)

// ConsensusState is the plain data object §3 describes: proposals
// (held inside Forks), participants, the current epoch's coins and
// eta, and the immutable genesis fields. It has no lock of its own --
// ValidatorState (package node) is the sole owner and mediates all
// access through a single writers/multiple-readers lock (§5).
type ConsensusState struct {
	GenesisTS   uint64
	GenesisHash Hash

	Forks *ForkSet

	participants      map[[32]byte]*Participant
	participantOrder  [][32]byte // discovery order of keys; ParticipantOrder sorts these by digest bytes at read time, §9

	Epoch    uint64
	EpochEta crypto.FieldElement
	Coins    CoinMatrix

	seenSerials map[string]struct{} // §9.1 resolution 2: within-epoch serial reuse check
}

// NewConsensusState returns a fresh ConsensusState anchored at genesis,
// with empty proposals and participants.
func NewConsensusState(genesisTS uint64, genesisHash Hash) *ConsensusState {
	return &ConsensusState{
		GenesisTS:   genesisTS,
		GenesisHash: genesisHash,
		Forks:       NewForkSet(genesisHash, 0),
		participants: make(map[[32]byte]*Participant),
		seenSerials:  make(map[string]struct{}),
	}
}

// AppendParticipant upserts a participant by its public-key digest:
// replacing the stored record if the digest is already known (§3.1:
// "append_participant is an idempotent upsert, replace-by-key, not
// append-if-absent"), or recording its digest otherwise (ParticipantOrder
// sorts the recorded digests at read time).
// Invariant 3 (§3) requires PublicKeyDigest(p.PublicKey) == digest;
// callers must supply p.Digest correctly, this is not re-derived here.
func (cs *ConsensusState) AppendParticipant(p Participant) {
	if _, exists := cs.participants[p.Digest]; !exists {
		cs.participantOrder = append(cs.participantOrder, p.Digest)
	}
	stored := p
	cs.participants[p.Digest] = &stored
}

// Participant looks up a participant by digest.
func (cs *ConsensusState) Participant(digest [32]byte) (*Participant, bool) {
	p, ok := cs.participants[digest]
	return p, ok
}

// ParticipantOrder returns the digests in lexicographic key-byte order,
// the ordering §3/§9 require for leader tie-breaks ("ordered map keyed
// by raw 32-byte public-key digests ... required for leader
// tie-breaks"): a BTreeMap-equivalent sort-at-read, not insertion order,
// so every node derives the same position for the same digest
// regardless of discovery order.
func (cs *ConsensusState) ParticipantOrder() [][32]byte {
	out := make([][32]byte, len(cs.participantOrder))
	copy(out, cs.participantOrder)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// CoinPublicInputsAt returns the known public inputs for a participant's
// coin at (relativeSlot, winningIndex), used by the validator's §4.6
// step 4 check.
func (cs *ConsensusState) CoinPublicInputsAt(digest [32]byte, relativeSlot uint64, winningIndex int) (CoinPublicInputs, bool) {
	p, ok := cs.participants[digest]
	if !ok {
		return CoinPublicInputs{}, false
	}
	if int(relativeSlot) >= len(p.Coins) {
		return CoinPublicInputs{}, false
	}
	row := p.Coins[relativeSlot]
	if winningIndex < 0 || winningIndex >= len(row) {
		return CoinPublicInputs{}, false
	}
	return row[winningIndex], true
}

// SetCoinPublicInputsAt records the next coin public inputs for a
// participant at (relativeSlot, winningIndex), per §4.6 step 9.
func (cs *ConsensusState) SetCoinPublicInputsAt(digest [32]byte, relativeSlot uint64, winningIndex int, inputs CoinPublicInputs, epochLength uint64) {
	p, ok := cs.participants[digest]
	if !ok {
		return
	}
	for uint64(len(p.Coins)) <= relativeSlot {
		p.Coins = append(p.Coins, nil)
	}
	row := p.Coins[relativeSlot]
	for len(row) <= winningIndex {
		row = append(row, CoinPublicInputs{})
	}
	row[winningIndex] = inputs
	p.Coins[relativeSlot] = row
}

// SlotLeaderLegacy is the unused alternate leader-lookup path carried
// over from the pre-distillation source (§3.1): it scans participants
// in digest order and returns the first whose digest, reduced to a
// field element, is less than the epoch eta. The real leader-selection
// path is always the lottery (§4.3); this method is kept documented and
// tested but never called by Propose/ReceiveProposal.
func (cs *ConsensusState) SlotLeaderLegacy() (*Participant, bool) {
	for _, digest := range cs.ParticipantOrder() {
		d := crypto.FieldFromBytes(digest[:])
		if d.Less(cs.EpochEta) {
			return cs.participants[digest], true
		}
	}
	return nil, false
}

// ApplyEpochChange replaces the epoch, eta and coin matrix, and resets
// the per-epoch serial-reuse set, per §4.2.
func (cs *ConsensusState) ApplyEpochChange(epoch uint64, matrix CoinMatrix, eta crypto.FieldElement) {
	cs.Epoch = epoch
	cs.Coins = matrix
	cs.EpochEta = eta
	cs.seenSerials = make(map[string]struct{})
}

// CheckAndRecordSerial reports whether serial has not yet been seen
// this epoch, recording it if so. Used to reject a winning coin whose
// serial has already been used this epoch (§9.1 resolution 2); replay
// across epoch boundaries is explicitly still not prevented.
func (cs *ConsensusState) CheckAndRecordSerial(serial crypto.FieldElement) bool {
	b := serial.Bytes()
	key := string(b[:])
	if _, seen := cs.seenSerials[key]; seen {
		return false
	}
	cs.seenSerials[key] = struct{}{}
	return true
}
