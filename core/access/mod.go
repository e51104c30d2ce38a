// Package access defines the interfaces of the access rights control of the
// ledger. Every ciphertext handle carries a grant set: the list of principals
// allowed to ask for its decryption. Grants only ever widen; there is no
// revocation primitive.
package access

import (
	"github.com/dedis/e-exam/core/store"
)

// Address is the textual identity of a principal. It is the hex encoding of
// the principal's public key point.
type Address string

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}

// Service is an abstraction to manage the grant set of ciphertext handles. It
// is the single choke point through which grant sets are mutated, which is
// what keeps the monotonic-grant invariant enforceable in one place.
type Service interface {
	// Grant adds the identities to the grant set of the handle. Identities
	// already present are left untouched. Grant never removes an identity.
	Grant(snap store.Snapshot, handle []byte, idents ...Address) error

	// Match returns nil if the identity belongs to the grant set of the
	// handle, and an error otherwise.
	Match(r store.Readable, handle []byte, ident Address) error
}
