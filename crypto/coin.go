package crypto

import (
	"github.com/holiman/uint256"
)

// LeadCoin is a stake instrument bound to a secret, used to produce a
// leader ZK proof and to compute lottery outcomes (§3, §4.2, §4.3).
type LeadCoin struct {
	Value      *uint256.Int
	Nonce      FieldElement
	SkRoot     FieldElement
	MerkleRoot FieldElement
	MerklePath []FieldElement
	Sigma1     FieldElement
	Sigma2     FieldElement
	YMu        FieldElement
	leafIndex  int
}

// NewCoin mints a fresh coin with the given value and sigma parameters,
// inserting its commitment into tree at the next free leaf (§4.2: "a
// fresh coin is minted ... and an insertion into a per-epoch commitment
// Merkle tree of depth MERKLE_DEPTH").
func NewCoin(value *uint256.Int, sigma SigmaParams, tree *MerkleTree) (LeadCoin, error) {
	nonce, err := RandomFieldElement()
	if err != nil {
		return LeadCoin{}, err
	}
	skRoot, err := RandomFieldElement()
	if err != nil {
		return LeadCoin{}, err
	}
	yMu, err := RandomFieldElement()
	if err != nil {
		return LeadCoin{}, err
	}

	leaf := coinLeafCommitment(value, nonce, skRoot)
	index, err := tree.Insert(leaf)
	if err != nil {
		return LeadCoin{}, err
	}

	return LeadCoin{
		Value:      value,
		Nonce:      nonce,
		SkRoot:     skRoot,
		MerkleRoot: tree.Root(),
		MerklePath: tree.Path(index),
		Sigma1:     sigma.Sigma1,
		Sigma2:     sigma.Sigma2,
		YMu:        yMu,
		leafIndex:  index,
	}, nil
}

// coinLeafCommitment is the coin's public commitment as inserted into
// the epoch Merkle tree: a hash binding value, nonce, and sk_root.
func coinLeafCommitment(value *uint256.Int, nonce, skRoot FieldElement) FieldElement {
	valueField := FieldFromBigInt(value.ToBig())
	return DomainHash(valueField, nonce, skRoot)
}

// LeafIndex returns the coin's position in its epoch's commitment tree.
func (c LeadCoin) LeafIndex() int {
	return c.leafIndex
}

// ValueField returns the coin's stake value reduced into the field, the
// "v" used in the lottery target formula (§4.3).
func (c LeadCoin) ValueField() FieldElement {
	return FieldFromBigInt(c.Value.ToBig())
}

// Serial returns the coin's serial number: the domain hash of its
// secret root and nonce. Recorded on Metadata and checked for
// within-epoch reuse (§9.1 resolution 2).
func (c LeadCoin) Serial() FieldElement {
	return DomainHash(c.SkRoot, c.Nonce)
}

// Y computes the lottery output y = H(H(sk_root,nonce) ⊕ G·mod_r(y_mu))
// per §4.3: hash the coin's secret binding, XOR it with the domain hash
// of the affine coordinates of the Pedersen commitment to y_mu, then
// hash the XOR result.
func (c LeadCoin) Y() FieldElement {
	secretHash := HashTwo(c.SkRoot, c.Nonce)
	commitment := Commit(c.YMu)
	affineHash := commitment.HashAffine()
	combined := secretHash.Xor(affineHash)
	return DomainHash(combined)
}

// Target computes T = sigma1*v + sigma2*v^2, the lottery winning
// threshold for this coin (§4.3).
func (c LeadCoin) Target() FieldElement {
	v := c.ValueField()
	term1 := c.Sigma1.Mul(v)
	term2 := c.Sigma2.Mul(v.Square())
	return term1.Add(term2)
}

// Wins reports whether this coin wins the lottery: y < T.
func (c LeadCoin) Wins() bool {
	return c.Y().Less(c.Target())
}
