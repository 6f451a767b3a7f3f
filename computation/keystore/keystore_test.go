package keystore

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/computation/store"
	"github.com/medcollab/securestats/lib/paillier"
)

func TestInitGeneratesOnce(t *testing.T) {
	s := store.NewMemStore()
	stream := random.New()

	ks := NewKeyStore(s, 256)
	_, err := ks.Pair()
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrState))

	require.NoError(t, ks.Init(stream))
	pair, err := ks.Pair()
	require.NoError(t, err)

	// A second Init is a no-op.
	require.NoError(t, ks.Init(stream))
	again, err := ks.Pair()
	require.NoError(t, err)
	assert.Equal(t, 0, pair.Public.N.Cmp(again.Public.N))
}

func TestInitLoadsPersisted(t *testing.T) {
	s := store.NewMemStore()
	stream := random.New()

	first := NewKeyStore(s, 256)
	require.NoError(t, first.Init(stream))
	pair, err := first.Pair()
	require.NoError(t, err)

	// A new store over the same persistence sees the same key.
	second := NewKeyStore(s, 256)
	require.NoError(t, second.Init(stream))
	loaded, err := second.Pair()
	require.NoError(t, err)
	assert.Equal(t, 0, pair.Public.N.Cmp(loaded.Public.N))
}

func TestRotate(t *testing.T) {
	s := store.NewMemStore()
	stream := random.New()

	ks := NewKeyStore(s, 256)
	require.NoError(t, ks.Init(stream))
	oldPair, err := ks.Pair()
	require.NoError(t, err)

	oldCipher, err := oldPair.Public.Encrypt(big.NewInt(5), stream)
	require.NoError(t, err)

	newPub, err := ks.Rotate(stream)
	require.NoError(t, err)
	assert.NotEqual(t, 0, newPub.N.Cmp(oldPair.Public.N))

	// Ciphertexts under the old key no longer combine with new ones.
	newPair, err := ks.Pair()
	require.NoError(t, err)
	newCipher, err := newPair.Public.Encrypt(big.NewInt(6), stream)
	require.NoError(t, err)

	_, err = paillier.AddCipher(oldCipher, newCipher)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrCrypto))

	// The old private key still decrypts the old ciphertext.
	m, err := oldPair.Private.Decrypt(oldCipher)
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.Int64())

	// The rotated key is the persisted one.
	persisted, err := s.KeyPair()
	require.NoError(t, err)
	assert.Equal(t, 0, persisted.Public.N.Cmp(newPub.N))
}

func TestRotateRequiresInit(t *testing.T) {
	ks := NewKeyStore(store.NewMemStore(), 256)
	_, err := ks.Rotate(random.New())
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrState))
}
