// Package crypto defines the cryptographic primitives needed by the ledger
// and the authorization protocol.
package crypto

import (
	"crypto/sha256"
	"encoding"
	"hash"
)

// Signature is the raw signature over a message.
type Signature []byte

// PublicKey is a public identity that can be used to verify a signature.
type PublicKey interface {
	encoding.BinaryMarshaler

	// Verify returns nil if the signature matches the message for this
	// public key.
	Verify(msg []byte, sig Signature) error
}

// Signer provides the primitives to sign and verify signatures.
type Signer interface {
	// GetPublicKey returns the public key of the signer.
	GetPublicKey() PublicKey

	// Sign signs the message and returns the signature.
	Sign(msg []byte) (Signature, error)
}

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}

// Sha256Factory is a hash factory for SHA-256 digests.
//
// - implements crypto.HashFactory
type Sha256Factory struct{}

// NewSha256Factory returns a new instance of the factory.
func NewSha256Factory() Sha256Factory {
	return Sha256Factory{}
}

// New implements crypto.HashFactory.
func (f Sha256Factory) New() hash.Hash {
	return sha256.New()
}
