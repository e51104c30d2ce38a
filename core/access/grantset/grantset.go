// Package grantset implements the access service with one append-only list of
// principals stored per ciphertext handle.
package grantset

import (
	"encoding/hex"
	"encoding/json"

	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/core/store"
	"golang.org/x/xerrors"
)

// Prefix is prepended to the handle to form the storage key of its grant set.
const Prefix = "grant:"

// Service is an access service backed by a store snapshot.
//
// - implements access.Service
type Service struct{}

// NewService creates a new grant set service.
func NewService() Service {
	return Service{}
}

// Grant implements access.Service. It adds the missing identities to the
// grant set of the handle. The operation is idempotent and only ever grows
// the set.
func (srvc Service) Grant(snap store.Snapshot, handle []byte, idents ...access.Address) error {
	grants, err := srvc.grants(snap, handle)
	if err != nil {
		return xerrors.Errorf("failed to read grants: %v", err)
	}

	for _, ident := range idents {
		if !contains(grants, ident) {
			grants = append(grants, ident)
		}
	}

	buffer, err := json.Marshal(grants)
	if err != nil {
		return xerrors.Errorf("failed to marshal grants: %v", err)
	}

	err = snap.Set(makeKey(handle), buffer)
	if err != nil {
		return xerrors.Errorf("failed to set grants: %v", err)
	}

	return nil
}

// Match implements access.Service. It returns nil if the identity has been
// granted decryption rights on the handle.
func (srvc Service) Match(r store.Readable, handle []byte, ident access.Address) error {
	grants, err := srvc.grants(r, handle)
	if err != nil {
		return xerrors.Errorf("failed to read grants: %v", err)
	}

	if !contains(grants, ident) {
		return xerrors.Errorf("%v is not in the grant set of '%x'", ident, handle)
	}

	return nil
}

func (srvc Service) grants(r store.Readable, handle []byte) ([]access.Address, error) {
	buffer, err := r.Get(makeKey(handle))
	if err != nil {
		return nil, xerrors.Errorf("failed to get key '%x': %v", handle, err)
	}

	if len(buffer) == 0 {
		return nil, nil
	}

	grants := []access.Address{}
	err = json.Unmarshal(buffer, &grants)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal grants: %v", err)
	}

	return grants, nil
}

func makeKey(handle []byte) []byte {
	return []byte(Prefix + hex.EncodeToString(handle))
}

func contains(grants []access.Address, ident access.Address) bool {
	for _, grant := range grants {
		if grant == ident {
			return true
		}
	}

	return false
}
