package consensus

import "testing"

func mkProposal(prev Hash, slot uint64) BlockProposal {
	h := Header{PreviousHash: prev, Slot: slot}
	p := BlockProposal{Header: h}
	p.HeaderHash = ComputeHeaderHash(h)
	return p
}

func TestLongestChainLastHashEmptyReturnsCanonicalTip(t *testing.T) {
	tip := Hash{1}
	fs := NewForkSet(tip, 5)

	hash, idx := fs.LongestChainLastHash()
	if idx != ExtendsCanonicalTip {
		t.Fatalf("idx = %d, want %d", idx, ExtendsCanonicalTip)
	}
	if hash != tip {
		t.Fatalf("hash = %x, want %x", hash, tip)
	}
}

func TestFindExtendedChainIndexExtendsCanonicalTip(t *testing.T) {
	tip := Hash{1}
	fs := NewForkSet(tip, 1)

	p := mkProposal(tip, 2)
	if idx := fs.FindExtendedChainIndex(p); idx != ExtendsCanonicalTip {
		t.Fatalf("idx = %d, want %d", idx, ExtendsCanonicalTip)
	}
}

func TestFindExtendedChainIndexNoMatch(t *testing.T) {
	fs := NewForkSet(Hash{1}, 1)
	p := mkProposal(Hash{99}, 2)
	if idx := fs.FindExtendedChainIndex(p); idx != NoMatch {
		t.Fatalf("idx = %d, want %d", idx, NoMatch)
	}
}

func TestFindExtendedChainIndexExtendsExistingChain(t *testing.T) {
	fs := NewForkSet(Hash{0}, 0)
	p1 := mkProposal(Hash{0}, 1)
	fs.NewChain(p1)

	p2 := mkProposal(p1.HeaderHash, 2)
	idx := fs.FindExtendedChainIndex(p2)
	if idx != 0 {
		t.Fatalf("idx = %d, want 0", idx)
	}
}

func TestFindExtendedChainIndexCreatesSiblingFork(t *testing.T) {
	fs := NewForkSet(Hash{0}, 0)
	p1 := mkProposal(Hash{0}, 1)
	fs.NewChain(p1)
	p2 := mkProposal(p1.HeaderHash, 2)
	fs.AppendToChain(0, p2)

	// A sibling of p2 shares p2's previous hash (p1's hash) but is a
	// distinct proposal at a later slot.
	sibling := mkProposal(p1.HeaderHash, 3)
	idx := fs.FindExtendedChainIndex(sibling)
	if idx != 1 {
		t.Fatalf("sibling idx = %d, want new chain at index 1", idx)
	}
	if fs.ChainLen(1) != 1 {
		t.Fatalf("sibling chain length = %d, want 1 (dropped tip of chain 0)", fs.ChainLen(1))
	}
}

func TestFinalizeNoopBelowLengthThree(t *testing.T) {
	fs := NewForkSet(Hash{0}, 0)
	p1 := mkProposal(Hash{0}, 1)
	idx := fs.NewChain(p1)
	p2 := mkProposal(p1.HeaderHash, 2)
	fs.AppendToChain(idx, p2)

	finalized, ok := fs.Finalize(idx)
	if ok || finalized != nil {
		t.Fatalf("expected no-op finalize for length 2 chain, got ok=%v finalized=%v", ok, finalized)
	}
}

func TestFinalizeDrainsPrefixAtLengthThree(t *testing.T) {
	fs := NewForkSet(Hash{0}, 0)
	p1 := mkProposal(Hash{0}, 1)
	idx := fs.NewChain(p1)
	p2 := mkProposal(p1.HeaderHash, 2)
	fs.AppendToChain(idx, p2)
	p3 := mkProposal(p2.HeaderHash, 3)
	fs.AppendToChain(idx, p3)

	finalized, ok := fs.Finalize(idx)
	if !ok {
		t.Fatal("expected finalize to succeed at length 3")
	}
	if len(finalized) != 2 {
		t.Fatalf("finalized length = %d, want 2", len(finalized))
	}
	if fs.ChainLen(idx) != 1 {
		t.Fatalf("remaining chain length = %d, want 1 (tip retained)", fs.ChainLen(idx))
	}

	tipHash, tipSlot := fs.CanonicalTip()
	if tipHash != p2.HeaderHash || tipSlot != p2.Header.Slot {
		t.Fatal("canonical tip did not advance to the last finalized block (p2), not the retained tip (p3)")
	}
}

func TestFinalizeSiblingOfRetainedTipSurvives(t *testing.T) {
	fs := NewForkSet(Hash{0}, 0)
	p1 := mkProposal(Hash{0}, 1)
	idx := fs.NewChain(p1)
	p2 := mkProposal(p1.HeaderHash, 2)
	fs.AppendToChain(idx, p2)
	p3 := mkProposal(p2.HeaderHash, 3)
	fs.AppendToChain(idx, p3)

	// A sibling of the retained tip p3: it also extends the last
	// finalized block p2, at a later slot than p2.
	siblingIdx := fs.NewChain(mkProposal(p2.HeaderHash, 4))

	finalized, ok := fs.Finalize(idx)
	if !ok {
		t.Fatal("expected finalize to succeed at length 3")
	}
	if len(finalized) != 2 {
		t.Fatalf("finalized length = %d, want 2", len(finalized))
	}
	if fs.ChainLen(idx) != 1 {
		t.Fatalf("remaining chain length = %d, want 1 (tip retained)", fs.ChainLen(idx))
	}
	if fs.ChainLen(siblingIdx) != 1 {
		t.Fatalf("sibling of the retained tip should survive pruning, got length %d", fs.ChainLen(siblingIdx))
	}
}

func TestFinalizeBlockedByEqualLengthFork(t *testing.T) {
	fs := NewForkSet(Hash{0}, 0)

	// Chain A to length 3.
	a1 := mkProposal(Hash{0}, 1)
	aIdx := fs.NewChain(a1)
	a2 := mkProposal(a1.HeaderHash, 2)
	fs.AppendToChain(aIdx, a2)
	a3 := mkProposal(a2.HeaderHash, 3)
	fs.AppendToChain(aIdx, a3)

	// Chain B, also to length 3, via a disjoint ancestor.
	b1 := mkProposal(Hash{7}, 1)
	bIdx := fs.NewChain(b1)
	b2 := mkProposal(b1.HeaderHash, 2)
	fs.AppendToChain(bIdx, b2)
	b3 := mkProposal(b2.HeaderHash, 3)
	fs.AppendToChain(bIdx, b3)

	_, ok := fs.Finalize(aIdx)
	if ok {
		t.Fatal("expected finalize to be blocked by an equal-length fork")
	}
}
