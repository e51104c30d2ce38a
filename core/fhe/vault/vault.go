// Package vault implements the encryption primitive as a coprocessor-style
// service: handles are fresh unique identifiers and the cleartexts live only
// inside the vault. Parties exchanging handles learn nothing about the values
// they reference.
package vault

import (
	"sync"

	"github.com/dedis/e-exam/core/fhe"
	"github.com/rs/xid"
	"golang.org/x/xerrors"
)

type kind int

const (
	kindInt kind = iota
	kindBool
)

type cleartext struct {
	kind    kind
	integer uint64
	boolean bool
}

// Vault is an in-process implementation of the encryption primitive.
//
// - implements fhe.Scheme
// - implements fhe.Revealer
type Vault struct {
	sync.Mutex

	values map[string]cleartext
}

// NewVault creates a new empty vault.
func NewVault() *Vault {
	return &Vault{
		values: make(map[string]cleartext),
	}
}

// Encrypt implements fhe.Scheme. It stores the value and returns a fresh
// handle referencing it.
func (v *Vault) Encrypt(value uint64) (fhe.Handle, error) {
	return v.put(cleartext{kind: kindInt, integer: value}), nil
}

// Zero implements fhe.Scheme. It returns a handle on an encrypted zero.
func (v *Vault) Zero() (fhe.Handle, error) {
	return v.put(cleartext{kind: kindInt}), nil
}

// Add implements fhe.Scheme. It returns a fresh handle on the sum of the two
// operands.
func (v *Vault) Add(a, b fhe.Handle) (fhe.Handle, error) {
	v.Lock()
	defer v.Unlock()

	left, err := v.intValue(a)
	if err != nil {
		return nil, err
	}

	right, err := v.intValue(b)
	if err != nil {
		return nil, err
	}

	return v.putLocked(cleartext{kind: kindInt, integer: left + right}), nil
}

// CmpGE implements fhe.Scheme. It returns a fresh handle on the encrypted
// boolean a >= b.
func (v *Vault) CmpGE(a, b fhe.Handle) (fhe.Handle, error) {
	v.Lock()
	defer v.Unlock()

	left, err := v.intValue(a)
	if err != nil {
		return nil, err
	}

	right, err := v.intValue(b)
	if err != nil {
		return nil, err
	}

	return v.putLocked(cleartext{kind: kindBool, boolean: left >= right}), nil
}

// RevealInt implements fhe.Revealer. It returns the cleartext integer behind
// the handle.
func (v *Vault) RevealInt(h fhe.Handle) (uint64, error) {
	v.Lock()
	defer v.Unlock()

	value, err := v.intValue(h)
	if err != nil {
		return 0, err
	}

	return value, nil
}

// RevealBool implements fhe.Revealer. It returns the cleartext boolean behind
// the handle.
func (v *Vault) RevealBool(h fhe.Handle) (bool, error) {
	v.Lock()
	defer v.Unlock()

	value, found := v.values[string(h)]
	if !found {
		return false, xerrors.Errorf("unknown handle '%v'", h)
	}

	if value.kind != kindBool {
		return false, xerrors.Errorf("handle '%v' is not a boolean", h)
	}

	return value.boolean, nil
}

func (v *Vault) put(value cleartext) fhe.Handle {
	v.Lock()
	defer v.Unlock()

	return v.putLocked(value)
}

func (v *Vault) putLocked(value cleartext) fhe.Handle {
	handle := xid.New().Bytes()
	v.values[string(handle)] = value

	return handle
}

func (v *Vault) intValue(h fhe.Handle) (uint64, error) {
	value, found := v.values[string(h)]
	if !found {
		return 0, xerrors.Errorf("unknown handle '%v'", h)
	}

	if value.kind != kindInt {
		return 0, xerrors.Errorf("handle '%v' is not an integer", h)
	}

	return value.integer, nil
}
