package prefixed

import (
	"testing"

	"github.com/dedis/e-exam/internal/testing/fake"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_KeySpace(t *testing.T) {
	backing := fake.NewSnapshot()

	snap := NewSnapshot("EXAM", backing)

	err := snap.Set([]byte("counter"), []byte{1})
	require.NoError(t, err)

	value, err := backing.Get([]byte("EXAMcounter"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, value)

	value, err = snap.Get([]byte("counter"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, value)

	err = snap.Delete([]byte("counter"))
	require.NoError(t, err)

	value, err = backing.Get([]byte("EXAMcounter"))
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestReadable_SharesKeySpace(t *testing.T) {
	backing := fake.NewSnapshot()

	snap := NewSnapshot("EXAM", backing)

	err := snap.Set([]byte("key"), []byte("value"))
	require.NoError(t, err)

	value, err := NewReadable("EXAM", backing).Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	value, err = NewReadable("OTHER", backing).Get([]byte("key"))
	require.NoError(t, err)
	require.Nil(t, value)
}
