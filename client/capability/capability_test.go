package capability

import (
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/crypto/schnorr"
	"github.com/stretchr/testify/require"
)

func TestNewAuthorizationMessage(t *testing.T) {
	key := make([]byte, 32)

	a := NewAuthorizationMessage(key, []access.Address{"bbb", "aaa"}, 10, 365)
	b := NewAuthorizationMessage(key, []access.Address{"aaa", "bbb"}, 10, 365)

	// The contract set is canonicalized by sorting.
	require.Equal(t, a, b)
	require.Equal(t, []access.Address{"aaa", "bbb"}, a.Message.Contracts)
	require.Equal(t, "Authorization", a.Domain.Name)

	bufferA, err := json.Marshal(a)
	require.NoError(t, err)

	bufferB, err := json.Marshal(b)
	require.NoError(t, err)

	require.Equal(t, bufferA, bufferB)
}

func TestCapability_Validate(t *testing.T) {
	cap := makeCapability(t)
	require.NoError(t, cap.Validate())

	bad := cap
	bad.PublicKey = "zz"
	require.EqualError(t, bad.Validate(), "malformed public key")

	bad = cap
	bad.PrivateKey = hex.EncodeToString(make([]byte, 16))
	require.EqualError(t, bad.Validate(), "malformed private key")

	bad = cap
	bad.Signature = ""
	require.EqualError(t, bad.Validate(), "missing signature")

	bad = cap
	bad.UserAddress = ""
	require.EqualError(t, bad.Validate(), "missing user address")

	bad = cap
	bad.Contracts = nil
	require.EqualError(t, bad.Validate(), "empty contract set")

	bad = cap
	bad.DurationDays = 0
	require.EqualError(t, bad.Validate(), "invalid duration")
}

func TestCapability_ExpiresAt(t *testing.T) {
	cap := Capability{StartTimestamp: 1000, DurationDays: 365}

	expected := time.Unix(1000, 0).Add(365 * 24 * time.Hour)
	require.Equal(t, expected, cap.ExpiresAt())
}

func TestCapability_Covers(t *testing.T) {
	cap := Capability{Contracts: []access.Address{"aaa", "bbb"}}

	require.True(t, cap.Covers("aaa"))
	require.False(t, cap.Covers("ccc"))
}

func TestCapability_JSONRoundTrip(t *testing.T) {
	cap := makeCapability(t)

	buffer, err := json.Marshal(cap)
	require.NoError(t, err)

	decoded := Capability{}
	require.NoError(t, json.Unmarshal(buffer, &decoded))
	require.Equal(t, cap, decoded)
	require.NoError(t, decoded.Validate())
}

func TestAddressOf(t *testing.T) {
	signer := schnorr.NewSigner()

	addr, err := AddressOf(signer.GetPublicKey())
	require.NoError(t, err)
	require.Len(t, string(addr), 64)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeCapability(t *testing.T) Capability {
	contracts := []access.Address{"aaa", "bbb"}
	msg := NewAuthorizationMessage(make([]byte, 32), contracts, 1000, DurationDays)

	return Capability{
		PublicKey:      hex.EncodeToString(make([]byte, 32)),
		PrivateKey:     hex.EncodeToString(make([]byte, 32)),
		Signature:      "aabb",
		StartTimestamp: 1000,
		DurationDays:   DurationDays,
		UserAddress:    "alice",
		Contracts:      contracts,
		Message:        msg,
	}
}
