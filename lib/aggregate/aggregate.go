// Package aggregate composes the Paillier primitives into the statistics
// offered to participating organizations. Sums and means are computed
// without ever decrypting an individual contribution. Variance,
// percentile and correlation need per-value squares, products or ordering
// that Paillier cannot provide homomorphically, so those paths see clear
// values and offer weaker privacy than sum and mean; this is inherent to
// the cryptosystem, not an implementation shortcut.
package aggregate

import (
	"crypto/cipher"
	"math"
	"math/big"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/lib/paillier"
)

// Scale is the fixed-point factor applied to measurements before
// encryption: values keep three decimals and lose the rest. The scaled
// magnitude must stay far below n/2 or the homomorphic sum wraps around;
// with 2048-bit keys this leaves room for astronomically many additions.
const Scale = 1000

// ToFixed maps a measurement to the integer plaintext domain. The
// conversion goes through big.Float so that magnitudes beyond the int64
// range map exactly instead of wrapping.
func ToFixed(v float64) *big.Int {
	f := new(big.Float).SetFloat64(v)
	f.Mul(f, big.NewFloat(Scale))
	// Round half away from zero.
	half := big.NewFloat(0.5)
	if f.Sign() < 0 {
		half.Neg(half)
	}
	f.Add(f, half)
	out, _ := f.Int(nil)
	return out
}

// FromFixed maps a decrypted integer back to a measurement.
func FromFixed(m *big.Int) float64 {
	f := new(big.Float).SetInt(m)
	out, _ := f.Float64()
	return out / Scale
}

// Sum folds the homomorphic addition over the ciphertexts and returns a
// single ciphertext of the total. Only that total is ever decrypted by
// the caller; the contributions stay opaque.
func Sum(ciphers []*paillier.Ciphertext) (*paillier.Ciphertext, error) {
	if len(ciphers) == 0 {
		return nil, securestats.NewError(securestats.ErrValidation,
			"nothing to aggregate")
	}
	acc := ciphers[0]
	for _, c := range ciphers[1:] {
		var err error
		acc, err = paillier.AddCipher(acc, c)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Mean decrypts the homomorphic sum once and divides in the clear, since
// Paillier has no homomorphic division.
func Mean(ciphers []*paillier.Ciphertext, priv *paillier.PrivateKey) (float64, error) {
	total, err := Sum(ciphers)
	if err != nil {
		return 0, err
	}
	m, err := priv.Decrypt(total)
	if err != nil {
		return 0, err
	}
	return FromFixed(m) / float64(len(ciphers)), nil
}

// Variance computes E[X^2] - E[X]^2 with two secure-sum passes, one over
// the values and one over their squares. The squares have to be formed on
// clear values, so unlike Sum and Mean this path exposes individual
// contributions to the aggregating party.
func Variance(values []float64, kp *paillier.KeyPair, rand cipher.Stream) (float64, error) {
	if len(values) == 0 {
		return 0, securestats.NewError(securestats.ErrValidation,
			"nothing to aggregate")
	}

	sum, err := encryptedSum(values, kp, rand)
	if err != nil {
		return 0, err
	}
	squares := make([]float64, len(values))
	for i, v := range values {
		squares[i] = v * v
	}
	sumSq, err := encryptedSum(squares, kp, rand)
	if err != nil {
		return 0, err
	}

	n := float64(len(values))
	mean := sum / n
	return sumSq/n - mean*mean, nil
}

// encryptedSum encrypts each value, sums homomorphically and decrypts the
// single total.
func encryptedSum(values []float64, kp *paillier.KeyPair, rand cipher.Stream) (float64, error) {
	ciphers := make([]*paillier.Ciphertext, len(values))
	for i, v := range values {
		c, err := kp.Public.Encrypt(ToFixed(v), rand)
		if err != nil {
			return 0, err
		}
		ciphers[i] = c
	}
	total, err := Sum(ciphers)
	if err != nil {
		return 0, err
	}
	m, err := kp.Private.Decrypt(total)
	if err != nil {
		return 0, err
	}
	return FromFixed(m), nil
}

// Percentile returns the p-th percentile with linear interpolation
// between ranks. Ordering values requires seeing them in the clear: no
// oblivious-sort protocol is provided, so this statistic is not private
// with respect to the aggregating party.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, securestats.NewError(securestats.ErrValidation,
			"nothing to aggregate")
	}
	if p < 0 || p > 100 {
		return 0, securestats.Errorf(securestats.ErrValidation,
			"percentile %v outside [0, 100]", p)
	}

	sorted := append([]float64(nil), values...)
	if err := sortWith(sorted, ClearComparator{}); err != nil {
		return 0, err
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1], nil
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo]), nil
}

// Correlation computes the Pearson coefficient from the secure sums of
// x, y, x*y, x^2 and y^2. The product and square terms require clear
// values, with the same reduced-privacy caveat as Variance. The result is
// clamped to [-1, 1] against fixed-point drift and is 0 whenever either
// variance vanishes.
func Correlation(xs, ys []float64, kp *paillier.KeyPair, rand cipher.Stream) (float64, error) {
	if len(xs) == 0 {
		return 0, securestats.NewError(securestats.ErrValidation,
			"nothing to aggregate")
	}
	if len(xs) != len(ys) {
		return 0, securestats.Errorf(securestats.ErrValidation,
			"series length mismatch: %d vs %d", len(xs), len(ys))
	}

	n := float64(len(xs))
	products := make([]float64, len(xs))
	xSq := make([]float64, len(xs))
	ySq := make([]float64, len(xs))
	for i := range xs {
		products[i] = xs[i] * ys[i]
		xSq[i] = xs[i] * xs[i]
		ySq[i] = ys[i] * ys[i]
	}

	var sums [5]float64
	for i, series := range [][]float64{xs, ys, products, xSq, ySq} {
		s, err := encryptedSum(series, kp, rand)
		if err != nil {
			return 0, err
		}
		sums[i] = s
	}
	sumX, sumY, sumXY, sumXX, sumYY := sums[0], sums[1], sums[2], sums[3], sums[4]

	cov := sumXY/n - (sumX/n)*(sumY/n)
	varX := sumXX/n - (sumX/n)*(sumX/n)
	varY := sumYY/n - (sumY/n)*(sumY/n)
	if varX <= 0 || varY <= 0 {
		return 0, nil
	}

	r := cov / math.Sqrt(varX*varY)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, nil
}
