// Package runtime declares the Contract Runtime capability the
// transaction verifier consumes (§6). The concrete execution
// environment (a wasm VM, a zkVM, or anything else) is an external
// collaborator; this package only names the interface and the shapes
// that cross it.
package runtime

import "errors"

// ErrMissingContract is returned when a contract's bincode cannot be
// loaded from the Canonical Chain Gateway.
var ErrMissingContract = errors.New("runtime: missing contract bincode")

// ZKPPublic names a single proof's public inputs, as decoded from a
// contract's metadata output (§4.7 step 2).
type ZKPPublic struct {
	ProofName    string
	PublicInputs [][]byte
}

// MetadataOutput is the decoded result of a contract call's metadata
// entrypoint: the set of ZK proofs and signatures that must later
// verify against the call's effects.
type MetadataOutput struct {
	ZKPPublics []ZKPPublic
	SigPublics [][]byte // compressed public keys, in call order
}

// StateUpdate is the opaque result of executing a contract call. The
// core never inspects its contents; it only threads it through to the
// matching Apply call (§4.7 step 6).
type StateUpdate []byte

// Runtime is a single contract instance bound to (bincode, chain
// handle, contract_id), per §6. A fresh Runtime is instantiated for
// every Apply call in the verifier (§4.7 step 6, §9 "Repeated
// instantiation within a transaction is a design decision kept
// explicit").
type Runtime interface {
	// Deploy runs the contract's deployment payload. Must be
	// idempotent: re-running Deploy with the same payload has no
	// additional effect.
	Deploy(initPayload []byte) error

	// Metadata executes the contract's metadata entrypoint over a call
	// payload and returns the proofs/signatures that must later verify.
	Metadata(payload []byte) (MetadataOutput, error)

	// Exec executes the contract's state-transition entrypoint and
	// returns an opaque update to be committed later via Apply.
	Exec(payload []byte) (StateUpdate, error)

	// Apply commits a previously produced StateUpdate.
	Apply(update StateUpdate) error
}

// Factory instantiates a Runtime bound to a specific contract. The
// verifier calls Factory once per call during metadata/exec, and again
// (fresh instance) per call during the apply replay (§4.7 step 6).
type Factory interface {
	// New returns a Runtime instance for contractID, loading its bincode
	// via the supplied loader. Returns ErrMissingContract if the
	// contract's bincode is absent.
	New(contractID [32]byte, bincode []byte) (Runtime, error)
}

// BincodeLoader loads a contract's wasm bincode, matching the Canonical
// Chain Gateway's wasm_bincode.get(contract_id) entry point (§6).
type BincodeLoader interface {
	GetBincode(contractID [32]byte) ([]byte, bool)
}
