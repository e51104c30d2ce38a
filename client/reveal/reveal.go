// Package reveal implements the off-chain decryption service. It accepts a
// capability plus a set of ciphertext handles and returns cleartext only when
// the capability is authentic, unexpired, scoped to the owning ledger, and
// its principal is present on each handle's grant set.
package reveal

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/dedis/e-exam/client/capability"
	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/core/fhe"
	"github.com/dedis/e-exam/core/store"
	"github.com/dedis/e-exam/crypto/schnorr"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/xerrors"
)

// ErrRevealDenied is returned when the capability or the grant set denies the
// request. It is a permanent denial for that request, distinct from any
// transport error.
var ErrRevealDenied = xerrors.New("reveal denied")

// ValueKind selects the cleartext type expected for a handle. The caller
// declares the kind; the service never infers it at runtime.
type ValueKind int

const (
	// KindInteger expects an integer cleartext.
	KindInteger ValueKind = iota

	// KindBoolean expects a boolean cleartext.
	KindBoolean
)

// Value is the tagged cleartext of a revealed handle.
type Value struct {
	Kind    ValueKind `json:"kind"`
	Integer uint64    `json:"integer"`
	Boolean bool      `json:"boolean"`
}

// HandleRef designates one handle to reveal, the ledger owning it and the
// expected cleartext kind.
type HandleRef struct {
	Handle   fhe.Handle
	Contract access.Address
	Kind     ValueKind
}

// Clock returns the current time of the service.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Service is the reveal service. It holds the revealer surface of the
// encryption primitive, which the ledger itself never sees.
type Service struct {
	revealer fhe.Revealer
	access   access.Service
	ledger   store.Readable
	clock    Clock
}

// NewService creates a reveal service reading grant sets from the given
// ledger view.
func NewService(revealer fhe.Revealer, srvc access.Service, ledger store.Readable) *Service {
	return &Service{
		revealer: revealer,
		access:   srvc,
		ledger:   ledger,
		clock:    realClock{},
	}
}

// Reveal returns the cleartext of every handle the capability is entitled
// to. Unset handles decode to the zero value of their kind.
func (s *Service) Reveal(cap capability.Capability, refs []HandleRef) (map[string]Value, error) {
	err := s.check(cap)
	if err != nil {
		return nil, err
	}

	result := make(map[string]Value, len(refs))

	for _, ref := range refs {
		if !cap.Covers(ref.Contract) {
			return nil, xerrors.Errorf("%w: ledger %v is out of scope",
				ErrRevealDenied, ref.Contract)
		}

		if ref.Handle.IsUnset() {
			result[ref.Handle.String()] = Value{Kind: ref.Kind}
			continue
		}

		err := s.access.Match(s.ledger, ref.Handle, cap.UserAddress)
		if err != nil {
			return nil, xerrors.Errorf("%w: %v", ErrRevealDenied, err)
		}

		value, err := s.reveal(ref)
		if err != nil {
			return nil, xerrors.Errorf("failed to reveal '%v': %v", ref.Handle, err)
		}

		result[ref.Handle.String()] = value
	}

	return result, nil
}

// SealedReveal behaves like Reveal but seals each cleartext to the ephemeral
// public key of the capability, so that only the capability holder can read
// the response.
func (s *Service) SealedReveal(cap capability.Capability, refs []HandleRef) (map[string][]byte, error) {
	values, err := s.Reveal(cap, refs)
	if err != nil {
		return nil, err
	}

	public, _, err := cap.BoxKeys()
	if err != nil {
		return nil, xerrors.Errorf("%w: %v", ErrRevealDenied, err)
	}

	sealed := make(map[string][]byte, len(values))

	for handle, value := range values {
		buffer, err := json.Marshal(value)
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal value: %v", err)
		}

		ciphertext, err := box.SealAnonymous(nil, buffer, public, rand.Reader)
		if err != nil {
			return nil, xerrors.Errorf("failed to seal value: %v", err)
		}

		sealed[handle] = ciphertext
	}

	return sealed, nil
}

// OpenSealed decrypts one sealed reveal response with the ephemeral keypair
// of the capability.
func OpenSealed(cap capability.Capability, sealed []byte) (Value, error) {
	public, private, err := cap.BoxKeys()
	if err != nil {
		return Value{}, xerrors.Errorf("failed to read keys: %v", err)
	}

	buffer, ok := box.OpenAnonymous(nil, sealed, public, private)
	if !ok {
		return Value{}, xerrors.New("failed to open sealed value")
	}

	value := Value{}
	err = json.Unmarshal(buffer, &value)
	if err != nil {
		return Value{}, xerrors.Errorf("failed to unmarshal value: %v", err)
	}

	return value, nil
}

// check verifies the capability itself: structure, signature and expiry.
func (s *Service) check(cap capability.Capability) error {
	err := cap.Validate()
	if err != nil {
		return xerrors.Errorf("%w: %v", ErrRevealDenied, err)
	}

	if cap.Message.Message.PublicKey != cap.PublicKey {
		return xerrors.Errorf("%w: message does not bind the public key", ErrRevealDenied)
	}

	data, err := hex.DecodeString(string(cap.UserAddress))
	if err != nil {
		return xerrors.Errorf("%w: malformed principal address", ErrRevealDenied)
	}

	pk, err := schnorr.NewPublicKey(data)
	if err != nil {
		return xerrors.Errorf("%w: %v", ErrRevealDenied, err)
	}

	msg, err := json.Marshal(cap.Message)
	if err != nil {
		return xerrors.Errorf("failed to marshal message: %v", err)
	}

	sig, err := hex.DecodeString(cap.Signature)
	if err != nil {
		return xerrors.Errorf("%w: malformed signature", ErrRevealDenied)
	}

	err = pk.Verify(msg, sig)
	if err != nil {
		return xerrors.Errorf("%w: %v", ErrRevealDenied, err)
	}

	if !s.clock.Now().Before(cap.ExpiresAt()) {
		return xerrors.Errorf("%w: capability expired", ErrRevealDenied)
	}

	return nil
}

func (s *Service) reveal(ref HandleRef) (Value, error) {
	switch ref.Kind {
	case KindBoolean:
		value, err := s.revealer.RevealBool(ref.Handle)
		if err != nil {
			return Value{}, err
		}

		return Value{Kind: KindBoolean, Boolean: value}, nil
	default:
		value, err := s.revealer.RevealInt(ref.Handle)
		if err != nil {
			return Value{}, err
		}

		return Value{Kind: KindInteger, Integer: value}, nil
	}
}
