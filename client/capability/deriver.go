package capability

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	eexam "github.com/dedis/e-exam"
	"github.com/dedis/e-exam/core/access"
	"github.com/dedis/e-exam/core/store/kv"
	"github.com/dedis/e-exam/crypto"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/xerrors"
)

// ErrCapabilityUnavailable is returned when the signer declined or failed to
// produce the authorization signature. Callers retry by invoking Obtain
// again; nothing gets cached.
var ErrCapabilityUnavailable = xerrors.New("capability unavailable")

// cacheBucket is the bucket of the capability cache in the client database.
var cacheBucket = []byte("capabilities")

// SignFn produces the one interactive signature over the canonical
// authorization message. It returns an error when the signer declines.
type SignFn func(msg []byte) (crypto.Signature, error)

// Cache is the persistent mapping from cache key to serialized capability.
type Cache interface {
	// Get returns the capability stored under the key, if any.
	Get(key string) (Capability, bool, error)

	// Put stores the capability under the key, overwriting any previous
	// entry.
	Put(key string, cap Capability) error
}

// kvCache is a capability cache on top of the key/value database.
//
// - implements capability.Cache
type kvCache struct {
	db kv.DB
}

// NewCache creates a cache persisted in the given database.
func NewCache(db kv.DB) Cache {
	return kvCache{db: db}
}

// Get implements capability.Cache. The lookup is a read-only transaction; a
// database without the bucket is an empty cache.
func (c kvCache) Get(key string) (Capability, bool, error) {
	var buffer []byte

	err := c.db.View(cacheBucket, func(b kv.Bucket) error {
		value := b.Get([]byte(key))
		if value != nil {
			buffer = append([]byte{}, value...)
		}

		return nil
	})
	if err != nil && !xerrors.Is(err, kv.ErrBucketNotFound) {
		return Capability{}, false, xerrors.Errorf("failed to read cache: %v", err)
	}

	if buffer == nil {
		return Capability{}, false, nil
	}

	cap := Capability{}
	err = json.Unmarshal(buffer, &cap)
	if err != nil {
		return Capability{}, false, xerrors.Errorf("failed to unmarshal capability: %v", err)
	}

	return cap, true, nil
}

// Put implements capability.Cache.
func (c kvCache) Put(key string, cap Capability) error {
	buffer, err := json.Marshal(cap)
	if err != nil {
		return xerrors.Errorf("failed to marshal capability: %v", err)
	}

	err = c.db.Update(cacheBucket, func(b kv.Bucket) error {
		return b.Set([]byte(key), buffer)
	})
	if err != nil {
		return xerrors.Errorf("failed to write cache: %v", err)
	}

	return nil
}

// Clock returns the current time of the deriver.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Deriver mints capabilities, one signature per scope. The persisted cache is
// the source of truth: two derivations racing on the same scope both produce
// a valid capability and the last write wins.
type Deriver struct {
	sync.Mutex

	cache Cache
	clock Clock
}

// NewDeriver creates a deriver over the given cache.
func NewDeriver(cache Cache) *Deriver {
	return &Deriver{
		cache: cache,
		clock: realClock{},
	}
}

// CacheKey derives the deterministic key of a (principal, contract set)
// scope. The hash covers the canonical message built with a neutral public
// key and zero timestamps; that placeholder document is only hashed, never
// signed.
func CacheKey(principal access.Address, contracts []access.Address) string {
	placeholder := NewAuthorizationMessage(make([]byte, 32), contracts, 0, 0)

	buffer, err := json.Marshal(placeholder)
	if err != nil {
		// A static struct of strings and integers always marshals.
		panic(xerrors.Errorf("failed to marshal placeholder: %v", err))
	}

	digest := sha256.Sum256(buffer)

	return string(principal) + hex.EncodeToString(digest[:])
}

// Obtain returns the capability of the (principal, contract set) scope. A
// structurally valid cache entry is returned as-is, without freshness check.
// On a miss it generates a fresh ephemeral keypair, has the signer sign the
// canonical message and persists the result.
func (d *Deriver) Obtain(principal access.Address, contracts []access.Address,
	sign SignFn) (Capability, error) {

	return d.obtain(principal, contracts, sign, nil)
}

// ObtainWithKey behaves like Obtain with a pre-supplied ephemeral keypair
// instead of a generated one.
func (d *Deriver) ObtainWithKey(principal access.Address, contracts []access.Address,
	sign SignFn, publicKey, privateKey *[32]byte) (Capability, error) {

	keys := &boxKeyPair{public: publicKey, private: privateKey}

	return d.obtain(principal, contracts, sign, keys)
}

type boxKeyPair struct {
	public  *[32]byte
	private *[32]byte
}

func (d *Deriver) obtain(principal access.Address, contracts []access.Address,
	sign SignFn, keys *boxKeyPair) (Capability, error) {

	d.Lock()
	defer d.Unlock()

	key := CacheKey(principal, contracts)

	cached, found, err := d.cache.Get(key)
	if err != nil {
		return Capability{}, xerrors.Errorf("failed to look up cache: %v", err)
	}

	if found && cached.Validate() == nil {
		eexam.Logger.Debug().
			Str("principal", principal.String()).
			Msg("capability cache hit")

		return cached, nil
	}

	if keys == nil {
		public, private, err := box.GenerateKey(rand.Reader)
		if err != nil {
			return Capability{}, xerrors.Errorf("failed to generate keypair: %v", err)
		}

		keys = &boxKeyPair{public: public, private: private}
	}

	start := d.clock.Now().Unix()

	msg := NewAuthorizationMessage(keys.public[:], contracts, start, DurationDays)

	buffer, err := json.Marshal(msg)
	if err != nil {
		return Capability{}, xerrors.Errorf("failed to marshal message: %v", err)
	}

	sig, err := sign(buffer)
	if err != nil {
		return Capability{}, xerrors.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}

	cap := Capability{
		PublicKey:      hex.EncodeToString(keys.public[:]),
		PrivateKey:     hex.EncodeToString(keys.private[:]),
		Signature:      hex.EncodeToString(sig),
		StartTimestamp: start,
		DurationDays:   DurationDays,
		UserAddress:    principal,
		Contracts:      msg.Message.Contracts,
		Message:        msg,
	}

	err = d.cache.Put(key, cap)
	if err != nil {
		return Capability{}, xerrors.Errorf("failed to persist capability: %v", err)
	}

	eexam.Logger.Info().
		Str("principal", principal.String()).
		Msg("capability minted")

	return cap, nil
}
