package vault

import (
	"testing"

	"github.com/dedis/e-exam/core/fhe"
	"github.com/stretchr/testify/require"
)

func TestVault_Encrypt(t *testing.T) {
	v := NewVault()

	a, err := v.Encrypt(25)
	require.NoError(t, err)

	b, err := v.Encrypt(25)
	require.NoError(t, err)

	// Two encryptions of the same value must yield distinct handles.
	require.NotEqual(t, a.String(), b.String())

	value, err := v.RevealInt(a)
	require.NoError(t, err)
	require.Equal(t, uint64(25), value)
}

func TestVault_Add(t *testing.T) {
	v := NewVault()

	zero, err := v.Zero()
	require.NoError(t, err)

	a, err := v.Encrypt(25)
	require.NoError(t, err)

	sum, err := v.Add(zero, a)
	require.NoError(t, err)

	b, err := v.Encrypt(28)
	require.NoError(t, err)

	sum, err = v.Add(sum, b)
	require.NoError(t, err)

	value, err := v.RevealInt(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(53), value)

	_, err = v.Add(sum, fhe.Handle("nope"))
	require.EqualError(t, err, "unknown handle '6e6f7065'")

	_, err = v.Add(fhe.Handle("nope"), sum)
	require.EqualError(t, err, "unknown handle '6e6f7065'")
}

func TestVault_CmpGE(t *testing.T) {
	v := NewVault()

	total, err := v.Encrypt(88)
	require.NoError(t, err)

	threshold, err := v.Encrypt(60)
	require.NoError(t, err)

	passed, err := v.CmpGE(total, threshold)
	require.NoError(t, err)

	value, err := v.RevealBool(passed)
	require.NoError(t, err)
	require.True(t, value)

	failed, err := v.CmpGE(threshold, total)
	require.NoError(t, err)

	value, err = v.RevealBool(failed)
	require.NoError(t, err)
	require.False(t, value)

	// Equality counts as passing.
	equal, err := v.CmpGE(threshold, threshold)
	require.NoError(t, err)

	value, err = v.RevealBool(equal)
	require.NoError(t, err)
	require.True(t, value)

	_, err = v.CmpGE(total, fhe.Handle("nope"))
	require.EqualError(t, err, "unknown handle '6e6f7065'")
}

func TestVault_Reveal_WrongKind(t *testing.T) {
	v := NewVault()

	a, err := v.Encrypt(1)
	require.NoError(t, err)

	b, err := v.CmpGE(a, a)
	require.NoError(t, err)

	_, err = v.RevealInt(b)
	require.Contains(t, err.Error(), "is not an integer")

	_, err = v.RevealBool(a)
	require.Contains(t, err.Error(), "is not a boolean")

	_, err = v.RevealInt(fhe.Handle("nope"))
	require.EqualError(t, err, "unknown handle '6e6f7065'")

	_, err = v.RevealBool(fhe.Handle("nope"))
	require.EqualError(t, err, "unknown handle '6e6f7065'")
}
