// Package signed provides the signed transaction implementation used by the
// exam ledger. The identity of the signer is bound to the transaction and the
// digest covers the nonce, the identity and every argument.
package signed

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/dedis/e-exam/core/access"
	"golang.org/x/xerrors"
)

// Transaction is a signed transaction.
//
// - implements txn.Transaction
type Transaction struct {
	nonce    uint64
	identity access.Address
	args     map[string][]byte
	hash     []byte
}

// TransactionOption is the type of option to set a specific part of a
// transaction.
type TransactionOption func(*Transaction)

// WithArg is an option to set an argument of the transaction.
func WithArg(key string, value []byte) TransactionOption {
	return func(tx *Transaction) {
		tx.args[key] = value
	}
}

// NewTransaction creates a new transaction for the given identity.
func NewTransaction(nonce uint64, ident access.Address, opts ...TransactionOption) (*Transaction, error) {
	if len(ident) == 0 {
		return nil, xerrors.New("identity is empty")
	}

	tx := &Transaction{
		nonce:    nonce,
		identity: ident,
		args:     make(map[string][]byte),
	}

	for _, opt := range opts {
		opt(tx)
	}

	tx.hash = tx.digest()

	return tx, nil
}

// GetID implements txn.Transaction. It returns the digest of the transaction.
func (tx *Transaction) GetID() []byte {
	return tx.hash
}

// GetNonce implements txn.Transaction.
func (tx *Transaction) GetNonce() uint64 {
	return tx.nonce
}

// GetIdentity implements txn.Transaction.
func (tx *Transaction) GetIdentity() access.Address {
	return tx.identity
}

// GetArg implements txn.Transaction. It returns the value of the argument, or
// nil if it is not set.
func (tx *Transaction) GetArg(key string) []byte {
	return tx.args[key]
}

func (tx *Transaction) digest() []byte {
	h := sha256.New()

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, tx.nonce)

	h.Write(buffer)
	h.Write([]byte(tx.identity))

	keys := make([]string, 0, len(tx.args))
	for key := range tx.args {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		h.Write([]byte(key))
		h.Write(tx.args[key])
	}

	return h.Sum(nil)
}
