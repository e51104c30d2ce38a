// Package fhe defines the abstraction of the homomorphic encryption
// primitive. The ledger only ever manipulates opaque ciphertext handles:
// arithmetic and comparisons are delegated to the scheme and never reveal any
// cleartext to the party holding the handle.
package fhe

import "encoding/hex"

// Handle is an opaque reference to an encrypted value. An empty handle is the
// unset sentinel used before a derived value has been computed.
type Handle []byte

// String implements fmt.Stringer. It returns the hex representation of the
// handle.
func (h Handle) String() string {
	return hex.EncodeToString(h)
}

// IsUnset returns true if the handle does not reference any ciphertext yet.
func (h Handle) IsUnset() bool {
	return len(h) == 0
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(text []byte) error {
	buffer, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}

	*h = buffer

	return nil
}

// Scheme provides the homomorphic operations available over ciphertext
// handles. This is the surface the ledger contract is allowed to use: none of
// these operations expose cleartext.
type Scheme interface {
	// Encrypt creates a ciphertext of the value and returns its handle.
	Encrypt(value uint64) (Handle, error)

	// Zero creates a ciphertext of zero, used as the seed of a fold.
	Zero() (Handle, error)

	// Add creates the ciphertext of the sum of the two operands.
	Add(a, b Handle) (Handle, error)

	// CmpGE creates the ciphertext of the boolean a >= b.
	CmpGE(a, b Handle) (Handle, error)
}

// Revealer provides the decryption operations of the scheme. Only the reveal
// service holds a Revealer; the ledger is deliberately restricted to the
// Scheme surface.
type Revealer interface {
	// RevealInt returns the cleartext of an integer ciphertext.
	RevealInt(h Handle) (uint64, error)

	// RevealBool returns the cleartext of a boolean ciphertext.
	RevealBool(h Handle) (bool, error)
}
