// Package keystore manages the process-wide Paillier key pair. It
// replaces ambient global key state with an explicit lifecycle: the key
// is loaded or generated once at startup, shared read-only by every
// computation afterwards, and replaced only through Rotate. Rotation
// never touches ciphertexts made under the previous key; they simply
// stop combining with new ones, which the same-key check on every
// homomorphic operation enforces.
package keystore

import (
	"crypto/cipher"
	"sync"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/computation/store"
	"github.com/medcollab/securestats/lib/paillier"
)

// DefaultBits is the production modulus size. Tests use far smaller keys
// to keep generation fast.
const DefaultBits = 2048

// KeyStore holds the current key pair behind a read-write lock.
type KeyStore struct {
	sync.RWMutex
	store store.Store
	bits  int
	pair  *paillier.KeyPair
}

// NewKeyStore returns an uninitialized key store; Init must run before
// the first cryptographic operation.
func NewKeyStore(s store.Store, bits int) *KeyStore {
	return &KeyStore{store: s, bits: bits}
}

// Init loads the persisted key pair or generates and persists a fresh
// one. Generation grinds through prime candidates and can take seconds
// for production sizes, so callers run Init during startup or on a
// worker, never on a request path.
func (k *KeyStore) Init(rand cipher.Stream) error {
	k.Lock()
	defer k.Unlock()

	if k.pair != nil {
		return nil
	}

	pair, err := k.store.KeyPair()
	if err == nil {
		k.pair = pair
		return nil
	}
	if !xerrors.Is(err, store.ErrNoKeyPair) {
		return err
	}

	log.Lvl2("generating new Paillier key pair with", k.bits, "bits")
	pair, err = paillier.GenerateKey(k.bits, rand)
	if err != nil {
		return err
	}
	if err := k.store.SaveKeyPair(pair); err != nil {
		return err
	}
	k.pair = pair
	return nil
}

// Pair returns the current key pair.
func (k *KeyStore) Pair() (*paillier.KeyPair, error) {
	k.RLock()
	defer k.RUnlock()

	if k.pair == nil {
		return nil, securestats.NewError(securestats.ErrState,
			"key store is not initialized")
	}
	return k.pair, nil
}

// Public returns the current public key.
func (k *KeyStore) Public() (*paillier.PublicKey, error) {
	pair, err := k.Pair()
	if err != nil {
		return nil, err
	}
	return pair.Public, nil
}

// Rotate generates, persists and installs a new key pair. It is the only
// mutation after Init. Submissions encrypted under the old key remain
// decryptable by whoever kept the old private key but cannot be combined
// with ciphertexts of the new one.
func (k *KeyStore) Rotate(rand cipher.Stream) (*paillier.PublicKey, error) {
	k.Lock()
	defer k.Unlock()

	if k.pair == nil {
		return nil, securestats.NewError(securestats.ErrState,
			"key store is not initialized")
	}

	pair, err := paillier.GenerateKey(k.bits, rand)
	if err != nil {
		return nil, err
	}
	if err := k.store.SaveKeyPair(pair); err != nil {
		return nil, err
	}
	k.pair = pair
	log.Lvl2("rotated Paillier key pair")
	return pair.Public, nil
}
