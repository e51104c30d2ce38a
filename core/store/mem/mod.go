// Package mem provides an in-memory snapshot. It serves as the ledger
// substrate of a single node and as the storage of choice in tests.
package mem

import (
	"sync"
)

// Snapshot is a map-backed implementation of a store snapshot. It is safe for
// concurrent readers while a writer is applying a transition, which matches
// the serialized-writes model of the ledger.
//
// - implements store.Snapshot
type Snapshot struct {
	sync.Mutex

	values map[string][]byte
}

// NewSnapshot creates a new empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		values: make(map[string][]byte),
	}
}

// Get implements store.Readable.
func (snap *Snapshot) Get(key []byte) ([]byte, error) {
	snap.Lock()
	defer snap.Unlock()

	return snap.values[string(key)], nil
}

// Set implements store.Writable.
func (snap *Snapshot) Set(key, value []byte) error {
	snap.Lock()
	defer snap.Unlock()

	snap.values[string(key)] = value

	return nil
}

// Delete implements store.Writable.
func (snap *Snapshot) Delete(key []byte) error {
	snap.Lock()
	defer snap.Unlock()

	delete(snap.values, string(key))

	return nil
}
