package crypto

import (
	"crypto/rand"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// ErrInvalidSignature is returned by Verify when a signature
// does not validate against the given public key and message digest.
var ErrInvalidSignature = errors.New("crypto: invalid schnorr signature")

// SigningKey is the node's long-lived secp256k1 keypair, used to sign
// proposal header hashes (§4.4 step 5) and to verify them on receipt
// (§4.6 step 6, §4.7 step 4).
type SigningKey struct {
	priv *secp256k1.PrivateKey
}

// PublicKey is the exported half of a SigningKey, and the identity a
// Participant record is keyed by (once digested, §3).
type PublicKey struct {
	pub *secp256k1.PublicKey
}

// GenerateSigningKey returns a fresh random keypair.
func GenerateSigningKey() (*SigningKey, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &SigningKey{priv: priv}, nil
}

// Public returns the public half of sk.
func (sk *SigningKey) Public() PublicKey {
	return PublicKey{pub: sk.priv.PubKey()}
}

// Sign produces a Schnorr signature over a 32-byte digest (the proposal
// header_hash). BIP340-style Schnorr signing already derives its nonce
// deterministically from the private key and message, so repeated calls
// with the same key and digest are reproducible.
func (sk *SigningKey) Sign(digest [32]byte) ([]byte, error) {
	sig, err := schnorr.Sign(sk.priv, digest[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// Verify checks a Schnorr signature over digest against pk. Returns
// ErrInvalidSignature (wrapping the library's error, if any) on failure.
func Verify(pk PublicKey, digest [32]byte, sig []byte) error {
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return errors.Join(ErrInvalidSignature, err)
	}
	if !parsed.Verify(digest[:], pk.pub) {
		return ErrInvalidSignature
	}
	return nil
}

// Bytes returns the 33-byte compressed SEC1 encoding of pk.
func (pk PublicKey) Bytes() []byte {
	return pk.pub.SerializeCompressed()
}

// PublicKeyFromBytes parses a compressed SEC1-encoded public key.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{pub: pub}, nil
}

// RandomFieldElement draws a fresh uniformly random field element, used
// to mint coin secrets (nonce, sk_root) at epoch rollover.
func RandomFieldElement() (FieldElement, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return FieldElement{}, err
	}
	return FieldFromBytes(b[:]), nil
}
