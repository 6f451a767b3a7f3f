package shamir

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"

	"github.com/medcollab/securestats"
)

func TestSplitReconstruct(t *testing.T) {
	stream := random.New()
	secret := big.NewInt(42)

	shares, err := Split(secret, 5, 3, stream)
	require.NoError(t, err)
	require.Equal(t, 5, len(shares))
	for i, s := range shares {
		assert.Equal(t, i+1, s.Index)
		assert.Equal(t, 3, s.Threshold)
		assert.Equal(t, 5, s.Total)
	}

	got, err := Reconstruct(shares, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cmp(secret))
}

func TestAnySubsetReconstructs(t *testing.T) {
	stream := random.New()
	secret := random.Int(Prime, stream)

	shares, err := Split(secret, 7, 4, stream)
	require.NoError(t, err)

	// Every reshuffling of the shares must reconstruct the same secret
	// from its first 4 elements.
	for i := 0; i < 20; i++ {
		perm := rand.Perm(7)
		subset := make([]*Share, 7)
		for j, p := range perm {
			subset[j] = shares[p]
		}
		got, err := Reconstruct(subset, 4)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Cmp(secret))
	}
}

func TestThresholdGrid(t *testing.T) {
	stream := random.New()
	for n := 1; n <= 50; n += 7 {
		for k := 1; k <= n; k += 5 {
			secret := random.Int(Prime, stream)
			shares, err := Split(secret, n, k, stream)
			require.NoError(t, err)

			got, err := Reconstruct(shares, k)
			require.NoError(t, err)
			assert.Equal(t, 0, got.Cmp(secret), "n=%d k=%d", n, k)
		}
	}
}

func TestTooFewShares(t *testing.T) {
	stream := random.New()
	shares, err := Split(big.NewInt(42), 5, 3, stream)
	require.NoError(t, err)

	_, err = Reconstruct(shares[:2], 3)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrCrypto))

	// Two shares reconstruct something, but not the secret.
	got, err := Reconstruct(shares[:2], 2)
	require.NoError(t, err)
	assert.NotEqual(t, 0, got.Cmp(big.NewInt(42)))
}

func TestSplitValidation(t *testing.T) {
	stream := random.New()
	_, err := Split(big.NewInt(1), 3, 5, stream)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrValidation))

	_, err = Split(big.NewInt(1), 0, 0, stream)
	require.Error(t, err)

	_, err = Split(big.NewInt(1), 1, 1, stream)
	require.NoError(t, err)
}

func TestReconstructValidation(t *testing.T) {
	stream := random.New()
	shares, err := Split(big.NewInt(9), 4, 2, stream)
	require.NoError(t, err)

	dup := []*Share{shares[1], shares[1]}
	_, err = Reconstruct(dup, 2)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrValidation))
}

func TestNegativeSecretReduced(t *testing.T) {
	stream := random.New()
	secret := big.NewInt(-10)
	shares, err := Split(secret, 3, 2, stream)
	require.NoError(t, err)

	got, err := Reconstruct(shares, 2)
	require.NoError(t, err)
	want := new(big.Int).Mod(secret, Prime)
	assert.Equal(t, 0, got.Cmp(want))
}
