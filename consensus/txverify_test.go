package consensus

import (
	"errors"
	"testing"

	"github.com/dusklot/valcore/crypto"
	"github.com/dusklot/valcore/runtime"
)

func TestVerifyTransactionsAppliesEachCallOnce(t *testing.T) {
	store := runtime.NewMemoryBincodeStore()
	factory := runtime.NewEchoFactory(store)

	var contractID [32]byte
	contractID[0] = 1
	store.Put(contractID, []byte("bincode"))

	txs := []Transaction{
		{ID: Hash{1}, Calls: []Call{{ContractID: contractID, CallData: []byte("a")}}},
		{ID: Hash{2}, Calls: []Call{{ContractID: contractID, CallData: []byte("b")}}},
	}

	if err := VerifyTransactions(txs, store, factory); err != nil {
		t.Fatalf("VerifyTransactions: %v", err)
	}

	if got := factory.ApplyCount(contractID); got != 2 {
		t.Fatalf("ApplyCount = %d, want 2", got)
	}
}

func TestVerifyTransactionsFailsOnMissingContract(t *testing.T) {
	store := runtime.NewMemoryBincodeStore()
	factory := runtime.NewEchoFactory(store)

	var contractID [32]byte
	contractID[0] = 9 // never deployed

	txs := []Transaction{
		{ID: Hash{1}, Calls: []Call{{ContractID: contractID}}},
	}

	err := VerifyTransactions(txs, store, factory)
	if !errors.Is(err, ErrMissingContract) {
		t.Fatalf("expected ErrMissingContract, got %v", err)
	}
}

func TestVerifyTransactionsEmptyBatchSucceeds(t *testing.T) {
	store := runtime.NewMemoryBincodeStore()
	factory := runtime.NewEchoFactory(store)

	if err := VerifyTransactions(nil, store, factory); err != nil {
		t.Fatalf("VerifyTransactions(nil): %v", err)
	}
}

// sigDeclaringFactory is a fake Factory whose Metadata declares a fixed
// set of required signer public keys, used to exercise §4.7 step 4's
// real signature check.
type sigDeclaringFactory struct {
	store      runtime.BincodeLoader
	sigPublics [][]byte
}

func (f *sigDeclaringFactory) New(contractID [32]byte, bincode []byte) (runtime.Runtime, error) {
	return &sigDeclaringRuntime{factory: f}, nil
}

type sigDeclaringRuntime struct {
	factory *sigDeclaringFactory
}

func (r *sigDeclaringRuntime) Deploy(initPayload []byte) error { return nil }

func (r *sigDeclaringRuntime) Metadata(payload []byte) (runtime.MetadataOutput, error) {
	return runtime.MetadataOutput{SigPublics: r.factory.sigPublics}, nil
}

func (r *sigDeclaringRuntime) Exec(payload []byte) (runtime.StateUpdate, error) {
	return runtime.StateUpdate("update"), nil
}

func (r *sigDeclaringRuntime) Apply(update runtime.StateUpdate) error { return nil }

func TestVerifyTransactionsVerifiesRealSignature(t *testing.T) {
	store := runtime.NewMemoryBincodeStore()
	var contractID [32]byte
	contractID[0] = 1
	store.Put(contractID, []byte("bincode"))

	sk, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}

	factory := &sigDeclaringFactory{store: store, sigPublics: [][]byte{sk.Public().Bytes()}}

	txID := Hash{5}
	sig, err := sk.Sign(txID)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tx := Transaction{
		ID:         txID,
		Calls:      []Call{{ContractID: contractID, CallData: []byte("x")}},
		Signatures: [][]byte{sig},
	}

	if err := VerifyTransactions([]Transaction{tx}, store, factory); err != nil {
		t.Fatalf("VerifyTransactions: %v", err)
	}
}

func TestVerifyTransactionsRejectsBadSignature(t *testing.T) {
	store := runtime.NewMemoryBincodeStore()
	var contractID [32]byte
	contractID[0] = 1
	store.Put(contractID, []byte("bincode"))

	sk, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}

	factory := &sigDeclaringFactory{store: store, sigPublics: [][]byte{sk.Public().Bytes()}}

	txID := Hash{5}
	otherSk, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	wrongSig, err := otherSk.Sign(txID)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tx := Transaction{
		ID:         txID,
		Calls:      []Call{{ContractID: contractID, CallData: []byte("x")}},
		Signatures: [][]byte{wrongSig},
	}

	err = VerifyTransactions([]Transaction{tx}, store, factory)
	if !errors.Is(err, ErrBadSig) {
		t.Fatalf("expected ErrBadSig, got %v", err)
	}
}

func TestVerifyTransactionsRejectsMissingSignature(t *testing.T) {
	store := runtime.NewMemoryBincodeStore()
	var contractID [32]byte
	contractID[0] = 1
	store.Put(contractID, []byte("bincode"))

	sk, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}

	factory := &sigDeclaringFactory{store: store, sigPublics: [][]byte{sk.Public().Bytes()}}

	tx := Transaction{
		ID:    Hash{5},
		Calls: []Call{{ContractID: contractID, CallData: []byte("x")}},
	}

	err = VerifyTransactions([]Transaction{tx}, store, factory)
	if !errors.Is(err, ErrBadSig) {
		t.Fatalf("expected ErrBadSig for a missing signature, got %v", err)
	}
}

// mixedFactory routes by contract ID: contractID[0] == 1 never declares
// a signature obligation (plain echo-style apply tracking); any other
// contract ID declares sigPublics and requires a matching signature.
// Used to show that a later transaction's missing signature does not
// undo an earlier transaction's already-applied update (§4.7's
// per-transaction table reset).
type mixedFactory struct {
	applies    map[[32]byte]int
	sigPublics [][]byte
}

func (f *mixedFactory) New(contractID [32]byte, bincode []byte) (runtime.Runtime, error) {
	return &mixedRuntime{factory: f, contractID: contractID}, nil
}

type mixedRuntime struct {
	factory    *mixedFactory
	contractID [32]byte
}

func (r *mixedRuntime) Deploy(initPayload []byte) error { return nil }

func (r *mixedRuntime) Metadata(payload []byte) (runtime.MetadataOutput, error) {
	if r.contractID[0] == 1 {
		return runtime.MetadataOutput{}, nil
	}
	return runtime.MetadataOutput{SigPublics: r.factory.sigPublics}, nil
}

func (r *mixedRuntime) Exec(payload []byte) (runtime.StateUpdate, error) {
	return runtime.StateUpdate("update"), nil
}

func (r *mixedRuntime) Apply(update runtime.StateUpdate) error {
	r.factory.applies[r.contractID]++
	return nil
}

func TestVerifyTransactionsResetsTablesPerTransaction(t *testing.T) {
	store := runtime.NewMemoryBincodeStore()
	var unsignedContract, signedContract [32]byte
	unsignedContract[0] = 1
	signedContract[0] = 2
	store.Put(unsignedContract, []byte("bincode"))
	store.Put(signedContract, []byte("bincode"))

	sk, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	factory := &mixedFactory{applies: make(map[[32]byte]int), sigPublics: [][]byte{sk.Public().Bytes()}}

	goodTx := Transaction{ID: Hash{1}, Calls: []Call{{ContractID: unsignedContract, CallData: []byte("a")}}}
	badTx := Transaction{ID: Hash{2}, Calls: []Call{{ContractID: signedContract, CallData: []byte("b")}}} // no Signatures: missing

	err = VerifyTransactions([]Transaction{goodTx, badTx}, store, factory)
	if !errors.Is(err, ErrBadSig) {
		t.Fatalf("expected ErrBadSig from the second transaction, got %v", err)
	}
	if got := factory.applies[unsignedContract]; got != 1 {
		t.Fatalf("goodTx's apply was not committed before badTx failed: applies = %d, want 1", got)
	}
	if got := factory.applies[signedContract]; got != 0 {
		t.Fatalf("badTx should never have reached apply: applies = %d, want 0", got)
	}
}
