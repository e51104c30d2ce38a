// Package capability implements the decryption-authorization protocol of the
// client. One interactive signature over a canonical authorization message is
// turned into a reusable, time-bounded capability that the reveal service
// accepts, and the capability is cached under a deterministic key so that the
// same scope never triggers a second signature.
package capability

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/crypto"
	"golang.org/x/xerrors"
)

// DurationDays is the validity period of a capability.
const DurationDays = 365

// Domain identifies the authorization document, EIP-712 style.
type Domain struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Body is the payload of the authorization message. The contract set is
// sorted so that the serialization is canonical.
type Body struct {
	PublicKey    string           `json:"publicKey"`
	Contracts    []access.Address `json:"contracts"`
	Start        int64            `json:"start"`
	DurationDays int64            `json:"durationDays"`
}

// AuthorizationMessage is the canonical document the signer signs. Its JSON
// serialization is deterministic: struct fields marshal in declaration order
// and the contract set is sorted.
type AuthorizationMessage struct {
	Domain  Domain `json:"domain"`
	Message Body   `json:"message"`
}

// NewAuthorizationMessage builds the canonical message binding the public key
// to the sorted contract set and the validity window.
func NewAuthorizationMessage(publicKey []byte, contracts []access.Address,
	start, durationDays int64) AuthorizationMessage {

	sorted := make([]access.Address, len(contracts))
	copy(sorted, contracts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return AuthorizationMessage{
		Domain: Domain{
			Name:    "Authorization",
			Version: "1",
		},
		Message: Body{
			PublicKey:    hex.EncodeToString(publicKey),
			Contracts:    sorted,
			Start:        start,
			DurationDays: durationDays,
		},
	}
}

// Capability is the reusable authorization artifact: an ephemeral keypair and
// one signature over the canonical message, bound to a principal, a contract
// set and a validity window.
type Capability struct {
	PublicKey      string               `json:"publicKey"`
	PrivateKey     string               `json:"privateKey"`
	Signature      string               `json:"signature"`
	StartTimestamp int64                `json:"startTimestamp"`
	DurationDays   int64                `json:"durationDays"`
	UserAddress    access.Address       `json:"userAddress"`
	Contracts      []access.Address     `json:"contractAddresses"`
	Message        AuthorizationMessage `json:"message"`
}

// Validate checks that the capability is structurally well-formed: every
// field is present and the keys have the expected size. It deliberately does
// not check the expiry; freshness is enforced by the reveal service.
func (c Capability) Validate() error {
	pub, err := hex.DecodeString(c.PublicKey)
	if err != nil || len(pub) != 32 {
		return xerrors.New("malformed public key")
	}

	priv, err := hex.DecodeString(c.PrivateKey)
	if err != nil || len(priv) != 32 {
		return xerrors.New("malformed private key")
	}

	if len(c.Signature) == 0 {
		return xerrors.New("missing signature")
	}

	if len(c.UserAddress) == 0 {
		return xerrors.New("missing user address")
	}

	if len(c.Contracts) == 0 {
		return xerrors.New("empty contract set")
	}

	if c.DurationDays <= 0 {
		return xerrors.New("invalid duration")
	}

	return nil
}

// ExpiresAt returns the instant after which the reveal service refuses the
// capability.
func (c Capability) ExpiresAt() time.Time {
	return time.Unix(c.StartTimestamp, 0).Add(time.Duration(c.DurationDays) * 24 * time.Hour)
}

// Covers returns true if the ledger address belongs to the capability's
// contract set.
func (c Capability) Covers(contract access.Address) bool {
	for _, addr := range c.Contracts {
		if addr == contract {
			return true
		}
	}

	return false
}

// BoxKeys returns the ephemeral keypair of the capability in the form the box
// sealing primitives expect.
func (c Capability) BoxKeys() (*[32]byte, *[32]byte, error) {
	pub, err := hex.DecodeString(c.PublicKey)
	if err != nil || len(pub) != 32 {
		return nil, nil, xerrors.New("malformed public key")
	}

	priv, err := hex.DecodeString(c.PrivateKey)
	if err != nil || len(priv) != 32 {
		return nil, nil, xerrors.New("malformed private key")
	}

	pubKey, privKey := new([32]byte), new([32]byte)
	copy(pubKey[:], pub)
	copy(privKey[:], priv)

	return pubKey, privKey, nil
}

// AddressOf derives the principal address of a public key.
func AddressOf(pk crypto.PublicKey) (access.Address, error) {
	data, err := pk.MarshalBinary()
	if err != nil {
		return "", xerrors.Errorf("failed to marshal public key: %v", err)
	}

	return access.Address(hex.EncodeToString(data)), nil
}
