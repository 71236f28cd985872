package consensus

import (
	"encoding/binary"
	"fmt"

	"github.com/dusklot/valcore/crypto"
	"github.com/dusklot/valcore/runtime"
)

// callRecord accumulates what a single call's metadata produced, so the
// verifier can run the batched verify steps (§4.7 steps 4-5) once all of
// a transaction's calls have executed.
type callRecord struct {
	contractID [32]byte
	update     runtime.StateUpdate
	meta       runtime.MetadataOutput
}

// VerifyTransactions implements §4.7: for every transaction, for every
// call, load the contract, run metadata then exec, accumulating that
// transaction's proof/signature obligations; after all of the
// transaction's calls have run, verify every signature and every proof
// against that transaction's own tables, then replay each (call,
// update) pair through a freshly instantiated runtime and apply it --
// before moving to the next transaction. Tables reset per transaction,
// matching the original's per-tx zkp_table/sig_table/updates reset
// rather than a single batch-wide accumulation: a later transaction's
// failure must not undo an earlier transaction's already-committed
// apply. The verifier is sequential and aborts the whole batch (without
// reverting prior applies) on the first failing transaction.
func VerifyTransactions(
	txs []Transaction,
	loader runtime.BincodeLoader,
	factory runtime.Factory,
) error {
	for _, tx := range txs {
		var records []callRecord

		for callIndex, call := range tx.Calls {
			bincode, ok := loader.GetBincode(call.ContractID)
			if !ok {
				return fmt.Errorf("%w: contract %x", ErrMissingContract, call.ContractID)
			}

			rt, err := factory.New(call.ContractID, bincode)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrRuntimeFailure, err)
			}

			payload := callPayload(callIndex, tx.Calls)

			meta, err := rt.Metadata(payload)
			if err != nil {
				return fmt.Errorf("%w: metadata: %w", ErrRuntimeFailure, err)
			}

			update, err := rt.Exec(payload)
			if err != nil {
				return fmt.Errorf("%w: exec: %w", ErrRuntimeFailure, err)
			}

			records = append(records, callRecord{
				contractID: call.ContractID,
				update:     update,
				meta:       meta,
			})
		}

		if err := verifySignatures(tx, records); err != nil {
			return err
		}
		if err := verifyZKPs(records); err != nil {
			return err
		}

		// Replay: fresh runtime instance per call, apply effects (§4.7
		// step 6, §9 "Repeated instantiation within a transaction is a
		// design decision kept explicit"). Applied immediately for this
		// transaction, before the next transaction's calls even execute.
		for _, rec := range records {
			bincode, ok := loader.GetBincode(rec.contractID)
			if !ok {
				return fmt.Errorf("%w: contract %x", ErrMissingContract, rec.contractID)
			}
			rt, err := factory.New(rec.contractID, bincode)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrRuntimeFailure, err)
			}
			if err := rt.Apply(rec.update); err != nil {
				return fmt.Errorf("%w: %w", ErrStateApplyFailure, err)
			}
		}
	}

	return nil
}

// callPayload builds "u32 call_index || encoded(tx.calls)" per §4.7
// step 2 -- the whole transaction's call vector, not just the single
// call at callIndex, matching the original's tx.calls.encode(&mut
// payload).
func callPayload(callIndex int, calls []Call) []byte {
	encoded := encodeCalls(calls)
	out := make([]byte, 4+len(encoded))
	binary.BigEndian.PutUint32(out, uint32(callIndex))
	copy(out[4:], encoded)
	return out
}

// encodeCalls deterministically serializes a transaction's full call
// vector: each call as its 32-byte contract ID followed by a
// length-prefixed call data blob, concatenated in call order.
func encodeCalls(calls []Call) []byte {
	var out []byte
	for _, call := range calls {
		out = append(out, call.ContractID[:]...)
		var length [4]byte
		binary.BigEndian.PutUint32(length[:], uint32(len(call.CallData)))
		out = append(out, length[:]...)
		out = append(out, call.CallData...)
	}
	return out
}

// verifySignatures checks tx's own attached signatures against this
// transaction's accumulated sig_publics table (§4.7 step 4, the
// original's tx.verify_sigs(sig_table)): one Schnorr signature per
// declared public key, over tx.ID, in the order the calls that declared
// them executed.
func verifySignatures(tx Transaction, records []callRecord) error {
	idx := 0
	for _, rec := range records {
		for _, pubBytes := range rec.meta.SigPublics {
			pk, err := crypto.PublicKeyFromBytes(pubBytes)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrBadSig, err)
			}
			if idx >= len(tx.Signatures) {
				return fmt.Errorf("%w: missing signature for public key %d", ErrBadSig, idx)
			}
			if err := crypto.Verify(pk, tx.ID, tx.Signatures[idx]); err != nil {
				return fmt.Errorf("%w: %w", ErrBadSig, err)
			}
			idx++
		}
	}
	if idx != len(tx.Signatures) {
		return fmt.Errorf("%w: tx carries %d signatures, calls declared %d", ErrBadSig, len(tx.Signatures), idx)
	}
	return nil
}

// verifyZKPs checks every accumulated zkp_publics entry (§4.7 step 5).
// The concrete proof bytes and verifying key belong to the external
// contract runtime (§1); this step validates that every proof
// obligation the runtime declared actually carries public inputs to
// check against.
func verifyZKPs(records []callRecord) error {
	for _, rec := range records {
		for _, zkp := range rec.meta.ZKPPublics {
			if len(zkp.PublicInputs) == 0 {
				return fmt.Errorf("%w: proof %q declared no public inputs", ErrBadZkp, zkp.ProofName)
			}
		}
	}
	return nil
}
