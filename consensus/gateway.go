package consensus

import (
	"errors"
	"fmt"
	"sync"
)

// Gateway is the Canonical Chain Gateway (§6): the sole persistence
// boundary the core consumes. The core never opens its own on-disk
// store; every append/query of finalized state goes through this
// interface.
type Gateway interface {
	// Add appends blocks in order, returning their hashes. Must fail on
	// broken linkage (a block whose previous hash doesn't match the
	// prior block's hash / current tip).
	Add(blocks []BlockProposal) ([]Hash, error)
	// Last returns the canonical tip's slot and hash.
	Last() (slot uint64, hash Hash, err error)
	// HasBlock reports whether a block hash is present in the canonical
	// chain.
	HasBlock(hash Hash) (bool, error)
	// LastProofHash returns the last leader-proof hash, used to derive
	// the next epoch's eta (§4.2).
	LastProofHash() ([32]byte, error)
	// ContainsTransaction reports whether a transaction hash is present
	// anywhere in the canonical chain.
	ContainsTransaction(txID Hash) (bool, error)
	// GetBincode returns a contract's wasm bincode, if deployed.
	GetBincode(contractID [32]byte) ([]byte, bool, error)
}

// ErrBrokenLinkage is wrapped into ErrGateway when Add is called with
// blocks that do not chain from the current tip.
var ErrBrokenLinkage = errors.New("consensus: broken block linkage")

// MemoryGateway is an in-memory reference Gateway implementation used
// in tests and as a starting point for an embedding application that
// has not yet wired a real store. It is guarded by a single
// sync.RWMutex, the same discipline every other stateful type in this
// package uses.
type MemoryGateway struct {
	mu sync.RWMutex

	blocks        []BlockProposal
	hashes        map[Hash]struct{}
	txs           map[Hash]struct{}
	bincode       map[[32]byte][]byte
	lastProofHash [32]byte

	genesisHash Hash
}

// NewMemoryGateway returns an empty gateway anchored at genesisHash.
func NewMemoryGateway(genesisHash Hash) *MemoryGateway {
	return &MemoryGateway{
		hashes:      make(map[Hash]struct{}),
		txs:         make(map[Hash]struct{}),
		bincode:     make(map[[32]byte][]byte),
		genesisHash: genesisHash,
	}
}

// Add implements Gateway.
func (g *MemoryGateway) Add(blocks []BlockProposal) ([]Hash, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tip := g.genesisHash
	if len(g.blocks) > 0 {
		tip = g.blocks[len(g.blocks)-1].HeaderHash
	}

	for _, b := range blocks {
		if b.Header.PreviousHash != tip {
			return nil, fmt.Errorf("%w: %w", ErrGateway, ErrBrokenLinkage)
		}
		tip = b.HeaderHash
	}

	hashes := make([]Hash, len(blocks))
	for i, b := range blocks {
		g.blocks = append(g.blocks, b)
		g.hashes[b.HeaderHash] = struct{}{}
		for _, tx := range b.Txs {
			g.txs[tx.ID] = struct{}{}
		}
		if b.Metadata.LeaderProof != nil {
			var ph [32]byte
			copy(ph[:], b.Metadata.LeaderProof.Bytes())
			g.lastProofHash = ph
		}
		hashes[i] = b.HeaderHash
	}
	return hashes, nil
}

// Last implements Gateway.
func (g *MemoryGateway) Last() (uint64, Hash, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.blocks) == 0 {
		return 0, g.genesisHash, nil
	}
	tip := g.blocks[len(g.blocks)-1]
	return tip.Header.Slot, tip.HeaderHash, nil
}

// HasBlock implements Gateway.
func (g *MemoryGateway) HasBlock(hash Hash) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.hashes[hash]
	return ok, nil
}

// LastProofHash implements Gateway.
func (g *MemoryGateway) LastProofHash() ([32]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastProofHash, nil
}

// ContainsTransaction implements Gateway.
func (g *MemoryGateway) ContainsTransaction(txID Hash) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.txs[txID]
	return ok, nil
}

// GetBincode implements Gateway.
func (g *MemoryGateway) GetBincode(contractID [32]byte) ([]byte, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.bincode[contractID]
	return b, ok, nil
}

// DeployBincode registers a contract's wasm bincode, for test setup.
func (g *MemoryGateway) DeployBincode(contractID [32]byte, bincode []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bincode[contractID] = bincode
}
