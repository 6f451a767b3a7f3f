package paillier

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"

	"github.com/medcollab/securestats"
)

// testBits keeps key generation fast; production keys are 2048 bits.
const testBits = 256

func testKey(t *testing.T) *KeyPair {
	t.Helper()
	kp, err := GenerateKey(testBits, random.New())
	require.NoError(t, err)
	return kp
}

func TestGenerateKey(t *testing.T) {
	kp := testKey(t)
	n := kp.Public.N

	assert.True(t, n.BitLen() >= testBits-2)
	assert.Equal(t, 0, kp.Public.G.Cmp(new(big.Int).Add(n, big.NewInt(1))))

	_, err := GenerateKey(32, random.New())
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrValidation))
}

func TestEncryptDecrypt(t *testing.T) {
	kp := testKey(t)
	stream := random.New()

	for _, m := range []int64{0, 1, 42, 123456789, -1, -5000} {
		c, err := kp.Public.Encrypt(big.NewInt(m), stream)
		require.NoError(t, err)

		got, err := kp.Private.Decrypt(c)
		require.NoError(t, err)
		assert.Equal(t, m, got.Int64())
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	kp := testKey(t)
	stream := random.New()

	c1, err := kp.Public.Encrypt(big.NewInt(7), stream)
	require.NoError(t, err)
	c2, err := kp.Public.Encrypt(big.NewInt(7), stream)
	require.NoError(t, err)
	assert.NotEqual(t, 0, c1.Value.Cmp(c2.Value),
		"blinding must randomize repeated encryptions")
}

func TestEncryptBounds(t *testing.T) {
	kp := testKey(t)
	_, err := kp.Public.Encrypt(kp.Public.N, random.New())
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrValidation))
}

func TestHomomorphicAdd(t *testing.T) {
	kp := testKey(t)
	stream := random.New()

	a, err := kp.Public.Encrypt(big.NewInt(1200), stream)
	require.NoError(t, err)
	b, err := kp.Public.Encrypt(big.NewInt(-200), stream)
	require.NoError(t, err)

	sum, err := AddCipher(a, b)
	require.NoError(t, err)
	got, err := kp.Private.Decrypt(sum)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Int64())
}

func TestHomomorphicAddPlain(t *testing.T) {
	kp := testKey(t)
	c, err := kp.Public.Encrypt(big.NewInt(40), random.New())
	require.NoError(t, err)

	got, err := kp.Private.Decrypt(AddPlain(c, big.NewInt(2)))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int64())
}

func TestHomomorphicMulPlain(t *testing.T) {
	kp := testKey(t)
	c, err := kp.Public.Encrypt(big.NewInt(21), random.New())
	require.NoError(t, err)

	got, err := kp.Private.Decrypt(MulPlain(c, big.NewInt(2)))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int64())
}

func TestKeyMismatch(t *testing.T) {
	kp1 := testKey(t)
	kp2 := testKey(t)
	stream := random.New()

	c1, err := kp1.Public.Encrypt(big.NewInt(1), stream)
	require.NoError(t, err)
	c2, err := kp2.Public.Encrypt(big.NewInt(2), stream)
	require.NoError(t, err)

	_, err = AddCipher(c1, c2)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrCrypto))

	_, err = kp2.Private.Decrypt(c1)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrCrypto))
}

func TestIsPrime(t *testing.T) {
	stream := random.New()
	for _, p := range []int64{2, 3, 5, 101, 7919} {
		assert.True(t, isPrime(big.NewInt(p), stream), "%d", p)
	}
	for _, c := range []int64{1, 4, 100, 7917, 561 /* Carmichael */} {
		assert.False(t, isPrime(big.NewInt(c), stream), "%d", c)
	}

	p := generatePrime(96, stream)
	assert.Equal(t, 96, p.BitLen())
	assert.True(t, p.ProbablyPrime(20))
}
