package consensus

import "errors"

// Proposal validation errors (§4.6, §7). receive_proposal returns the
// first of these that applies; callers discard the proposal.
var (
	ErrUnknownNode          = errors.New("consensus: proposer is not a known participant")
	ErrHeaderMismatch       = errors.New("consensus: header_hash does not match recomputed header")
	ErrInvalidPublicInputs  = errors.New("consensus: coin public inputs do not match the leader's known coin")
	ErrLeaderProofFailure   = errors.New("consensus: leader proof failed to verify")
	ErrInvalidSignature     = errors.New("consensus: proposal signature failed to verify")
	ErrUnknownExtension     = errors.New("consensus: proposal does not extend any known chain or the canonical tip")
)

// Transaction verification errors (§4.7, §7).
var (
	ErrBadSig           = errors.New("consensus: transaction signature verification failed")
	ErrBadZkp           = errors.New("consensus: transaction zk proof verification failed")
	ErrMissingContract  = errors.New("consensus: contract bincode not found")
	ErrRuntimeFailure   = errors.New("consensus: contract runtime execution failed")
	ErrStateApplyFailure = errors.New("consensus: state update apply failed")
)

// ErrGateway wraps all I/O failures surfaced by the Canonical Chain
// Gateway (§7). Callers should errors.Is(err, ErrGateway) and
// errors.Unwrap for the underlying cause.
var ErrGateway = errors.New("consensus: canonical chain gateway error")

// ErrNotParticipating names the §4.6 step 1 condition: the node has not
// yet started participating at the proposal's slot. No function in this
// module returns it; ValidatorState.ReceiveProposal ignores such a
// proposal and returns nil.
var ErrNotParticipating = errors.New("consensus: node is not yet participating at this slot")
