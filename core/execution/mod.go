// Package execution defines the service to execute a step in a validation
// batch. A step is a transaction and the transactions that preceded it in the
// batch; the ledger substrate guarantees steps are applied one at a time.
package execution

import (
	"github.com/dedis/e-exam/core/store"
	"github.com/dedis/e-exam/core/txn"
)

// Step is the execution input of a single transaction.
type Step struct {
	Previous []txn.Transaction
	Current  txn.Transaction
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a chance to the execution to explain why a transaction
	// has failed.
	Message string
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the
	// result of it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
