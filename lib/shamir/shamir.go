// Package shamir implements (k, n)-threshold secret sharing over a fixed
// prime field. A secret is embedded as the constant term of a random
// polynomial of degree k-1 and the shares are evaluations of that
// polynomial at x = 1..n; any k of them reconstruct the secret through
// Lagrange interpolation at 0 while fewer than k reveal nothing. Every
// operation is reduced modulo the field prime - evaluating the polynomial
// without reduction would degrade the scheme to curve-fitting.
package shamir

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/lib/arith"
)

// Prime is the field modulus, the Mersenne prime 2^521 - 1. It leaves
// ample room for fixed-point encoded measurements.
var Prime = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 521), big.NewInt(1))

// Share is one evaluation point of the sharing polynomial. Index is the
// x coordinate and starts at 1; x = 0 would leak the secret itself.
type Share struct {
	Index     int
	Value     *big.Int
	Threshold int
	Total     int
}

// Split shares the secret into n shares with reconstruction threshold k.
// The secret is reduced into the field first. The coefficients are drawn
// uniformly from the given stream, which must be cryptographically
// secure.
func Split(secret *big.Int, n, k int, rand cipher.Stream) ([]*Share, error) {
	if k < 1 || n < 1 {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"invalid sharing parameters n=%d k=%d", n, k)
	}
	if k > n {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"threshold %d exceeds share count %d", k, n)
	}

	coeffs := make([]*big.Int, k)
	coeffs[0] = new(big.Int).Mod(secret, Prime)
	for i := 1; i < k; i++ {
		coeffs[i] = random.Int(Prime, rand)
	}

	shares := make([]*Share, n)
	for i := 0; i < n; i++ {
		x := big.NewInt(int64(i + 1))
		shares[i] = &Share{
			Index:     i + 1,
			Value:     eval(coeffs, x),
			Threshold: k,
			Total:     n,
		}
	}
	return shares, nil
}

// eval computes the polynomial at x with a running power, mod Prime.
func eval(coeffs []*big.Int, x *big.Int) *big.Int {
	acc := new(big.Int)
	xPow := big.NewInt(1)
	for _, c := range coeffs {
		term := new(big.Int).Mul(c, xPow)
		acc.Add(acc, term)
		acc.Mod(acc, Prime)

		xPow.Mul(xPow, x)
		xPow.Mod(xPow, Prime)
	}
	return acc
}

// Reconstruct recovers the secret from at least k shares by Lagrange
// interpolation at x = 0. Only the first k shares are used; which k of
// the original n they are does not matter.
func Reconstruct(shares []*Share, k int) (*big.Int, error) {
	if k < 1 {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"invalid threshold %d", k)
	}
	if len(shares) < k {
		return nil, securestats.Errorf(securestats.ErrCrypto,
			"insufficient shares: got %d, need %d", len(shares), k)
	}

	used := shares[:k]
	seen := make(map[int]bool, k)
	for _, s := range used {
		if s.Index < 1 {
			return nil, securestats.Errorf(securestats.ErrValidation,
				"invalid share index %d", s.Index)
		}
		if seen[s.Index] {
			return nil, securestats.Errorf(securestats.ErrValidation,
				"duplicate share index %d", s.Index)
		}
		seen[s.Index] = true
	}

	secret := new(big.Int)
	for i, si := range used {
		num := big.NewInt(1)
		den := big.NewInt(1)
		xi := big.NewInt(int64(si.Index))

		for j, sj := range used {
			if i == j {
				continue
			}
			xj := big.NewInt(int64(sj.Index))
			// Basis polynomial evaluated at 0: prod (0 - xj) / (xi - xj).
			num.Mul(num, new(big.Int).Sub(Prime, xj))
			num.Mod(num, Prime)
			den.Mul(den, new(big.Int).Sub(xi, xj))
			den.Mod(den, Prime)
		}

		denInv, err := arith.ModInverse(den, Prime)
		if err != nil {
			return nil, err
		}

		term := new(big.Int).Mod(si.Value, Prime)
		term.Mul(term, num)
		term.Mod(term, Prime)
		term.Mul(term, denInv)
		term.Mod(term, Prime)

		secret.Add(secret, term)
		secret.Mod(secret, Prime)
	}
	return secret, nil
}
