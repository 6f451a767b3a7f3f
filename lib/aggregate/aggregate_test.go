package aggregate

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/lib/paillier"
)

func testKey(t *testing.T) *paillier.KeyPair {
	t.Helper()
	kp, err := paillier.GenerateKey(256, random.New())
	require.NoError(t, err)
	return kp
}

func encryptAll(t *testing.T, kp *paillier.KeyPair, values []float64) []*paillier.Ciphertext {
	t.Helper()
	stream := random.New()
	out := make([]*paillier.Ciphertext, len(values))
	for i, v := range values {
		c, err := kp.Public.Encrypt(ToFixed(v), stream)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

func TestFixedPoint(t *testing.T) {
	assert.Equal(t, int64(1500), ToFixed(1.5).Int64())
	assert.Equal(t, int64(-2250), ToFixed(-2.25).Int64())
	assert.InDelta(t, 1.5, FromFixed(big.NewInt(1500)), 1e-9)

	// Three decimals survive the roundtrip, the fourth does not.
	assert.InDelta(t, 0.123, FromFixed(ToFixed(0.1234)), 1e-3)
}

func TestFixedPointLargeMagnitudes(t *testing.T) {
	// Scaled values beyond the int64 range map exactly.
	want, ok := new(big.Int).SetString("10000000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, 0, want.Cmp(ToFixed(1e16)))
	assert.Equal(t, 0, new(big.Int).Neg(want).Cmp(ToFixed(-1e16)))
	assert.InDelta(t, 1e16, FromFixed(ToFixed(1e16)), 1)

	// The sum of two such values stays exact through the cryptosystem.
	kp := testKey(t)
	total, err := Sum(encryptAll(t, kp, []float64{1e16, 1e16}))
	require.NoError(t, err)
	m, err := kp.Private.Decrypt(total)
	require.NoError(t, err)
	assert.InDelta(t, 2e16, FromFixed(m), 1)
}

func TestSumMatchesPlaintext(t *testing.T) {
	kp := testKey(t)

	for _, size := range []int{1, 10, 1000} {
		values := make([]float64, size)
		var want float64
		for i := range values {
			values[i] = math.Round(rand.Float64()*2000-1000) / 10
			want += values[i]
		}

		total, err := Sum(encryptAll(t, kp, values))
		require.NoError(t, err)
		m, err := kp.Private.Decrypt(total)
		require.NoError(t, err)
		assert.InDelta(t, want, FromFixed(m), 0.01, "size %d", size)
	}
}

func TestSumEmpty(t *testing.T) {
	_, err := Sum(nil)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrValidation))
}

func TestSumKeyMismatch(t *testing.T) {
	kp1 := testKey(t)
	kp2 := testKey(t)

	mixed := append(encryptAll(t, kp1, []float64{1}), encryptAll(t, kp2, []float64{2})...)
	_, err := Sum(mixed)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrCrypto))
}

func TestMean(t *testing.T) {
	kp := testKey(t)

	// Two organizations' submissions concatenated.
	values := []float64{10, 20, 30, 15, 25, 35}
	mean, err := Mean(encryptAll(t, kp, values), kp.Private)
	require.NoError(t, err)
	assert.InDelta(t, 22.5, mean, 0.01)
}

func TestVariance(t *testing.T) {
	kp := testKey(t)
	stream := random.New()

	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	v, err := Variance(values, kp, stream)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, v, 0.05)

	_, err = Variance(nil, kp, stream)
	require.Error(t, err)
}

func TestPercentile(t *testing.T) {
	values := []float64{15, 20, 35, 40, 50}

	p, err := Percentile(values, 50)
	require.NoError(t, err)
	assert.InDelta(t, 35, p, 1e-9)

	p, err = Percentile(values, 0)
	require.NoError(t, err)
	assert.InDelta(t, 15, p, 1e-9)

	p, err = Percentile(values, 100)
	require.NoError(t, err)
	assert.InDelta(t, 50, p, 1e-9)

	p, err = Percentile(values, 25)
	require.NoError(t, err)
	assert.InDelta(t, 20, p, 1e-9)

	_, err = Percentile(values, 101)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrValidation))

	_, err = Percentile(nil, 50)
	require.Error(t, err)
}

func TestCorrelation(t *testing.T) {
	kp := testKey(t)
	stream := random.New()

	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}
	r, err := Correlation(xs, ys, kp, stream)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 0.01)

	inv := []float64{10, 8, 6, 4, 2}
	r, err = Correlation(xs, inv, kp, stream)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, r, 0.01)

	flat := []float64{3, 3, 3, 3, 3}
	r, err = Correlation(xs, flat, kp, stream)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)

	_, err = Correlation(xs, ys[:3], kp, stream)
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrValidation))
}

func TestClearComparator(t *testing.T) {
	var c Comparator = ClearComparator{}
	less, err := c.Less(1, 2)
	require.NoError(t, err)
	assert.True(t, less)
}
