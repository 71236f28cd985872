package runtime

import (
	"crypto/sha256"
	"sync"
)

// MemoryBincodeStore is a minimal in-memory BincodeLoader, standing in
// for the Canonical Chain Gateway's wasm_bincode.get for tests.
type MemoryBincodeStore struct {
	mu   sync.RWMutex
	code map[[32]byte][]byte
}

// NewMemoryBincodeStore returns an empty store.
func NewMemoryBincodeStore() *MemoryBincodeStore {
	return &MemoryBincodeStore{code: make(map[[32]byte][]byte)}
}

// Put registers bincode for a contract ID.
func (s *MemoryBincodeStore) Put(contractID [32]byte, bincode []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code[contractID] = bincode
}

// GetBincode implements BincodeLoader.
func (s *MemoryBincodeStore) GetBincode(contractID [32]byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.code[contractID]
	return b, ok
}

// EchoFactory is a reference Factory/Runtime pair for tests: Metadata
// returns no required proofs/signatures and Exec/Apply are no-ops that
// record call counts. It lets the transaction verifier be exercised end
// to end without a real wasm/zkVM backend.
type EchoFactory struct {
	mu    sync.RWMutex
	store BincodeLoader

	deployed map[[32]byte]int
	execs    map[[32]byte]int
	applies  map[[32]byte]int
}

// NewEchoFactory returns a Factory backed by store.
func NewEchoFactory(store BincodeLoader) *EchoFactory {
	return &EchoFactory{
		store:    store,
		deployed: make(map[[32]byte]int),
		execs:    make(map[[32]byte]int),
		applies:  make(map[[32]byte]int),
	}
}

// New implements Factory.
func (f *EchoFactory) New(contractID [32]byte, bincode []byte) (Runtime, error) {
	if bincode == nil {
		loaded, ok := f.store.GetBincode(contractID)
		if !ok {
			return nil, ErrMissingContract
		}
		bincode = loaded
	}
	return &echoRuntime{factory: f, contractID: contractID, bincode: bincode}, nil
}

// echoRuntime is the Runtime EchoFactory.New hands out.
type echoRuntime struct {
	factory    *EchoFactory
	contractID [32]byte
	bincode    []byte
}

func (r *echoRuntime) Deploy(initPayload []byte) error {
	r.factory.mu.Lock()
	defer r.factory.mu.Unlock()
	r.factory.deployed[r.contractID]++
	return nil
}

// Metadata returns no proof/signature obligations; callers supplying
// their own MetadataOutput via a custom Factory can exercise the
// verification paths (§4.7 steps 4-5).
func (r *echoRuntime) Metadata(payload []byte) (MetadataOutput, error) {
	return MetadataOutput{}, nil
}

func (r *echoRuntime) Exec(payload []byte) (StateUpdate, error) {
	r.factory.mu.Lock()
	defer r.factory.mu.Unlock()
	r.factory.execs[r.contractID]++
	sum := sha256.Sum256(append(r.bincode, payload...))
	return StateUpdate(sum[:]), nil
}

func (r *echoRuntime) Apply(update StateUpdate) error {
	r.factory.mu.Lock()
	defer r.factory.mu.Unlock()
	r.factory.applies[r.contractID]++
	return nil
}

// ApplyCount reports how many times Apply ran for a contract, used by
// tests to assert the verifier's fresh-runtime-per-call replay (§4.7
// step 6) actually invoked Apply once per call.
func (f *EchoFactory) ApplyCount(contractID [32]byte) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.applies[contractID]
}
