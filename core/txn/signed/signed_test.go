package signed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTransaction(t *testing.T) {
	tx, err := NewTransaction(5, "alice", WithArg("key", []byte("value")))
	require.NoError(t, err)

	require.Equal(t, uint64(5), tx.GetNonce())
	require.Equal(t, "alice", tx.GetIdentity().String())
	require.Equal(t, []byte("value"), tx.GetArg("key"))
	require.Nil(t, tx.GetArg("missing"))
	require.Len(t, tx.GetID(), 32)

	_, err = NewTransaction(0, "")
	require.EqualError(t, err, "identity is empty")
}

func TestTransaction_Digest(t *testing.T) {
	a, err := NewTransaction(1, "alice", WithArg("k1", []byte("v1")), WithArg("k2", []byte("v2")))
	require.NoError(t, err)

	b, err := NewTransaction(1, "alice", WithArg("k2", []byte("v2")), WithArg("k1", []byte("v1")))
	require.NoError(t, err)

	// The digest is independent of the argument insertion order.
	require.Equal(t, a.GetID(), b.GetID())

	c, err := NewTransaction(2, "alice", WithArg("k1", []byte("v1")), WithArg("k2", []byte("v2")))
	require.NoError(t, err)

	require.NotEqual(t, a.GetID(), c.GetID())
}
