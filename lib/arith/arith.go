// Package arith implements the modular big-integer arithmetic shared by
// the secret-sharing and Paillier packages: modular exponentiation, the
// extended Euclidean algorithm and the modular inverse derived from it,
// gcd and lcm.
package arith

import (
	"math/big"

	"github.com/medcollab/securestats"
)

var one = big.NewInt(1)

// ModPow returns base^exp mod mod in a fresh big.Int.
func ModPow(base, exp, mod *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, mod)
}

// GCD returns the greatest common divisor of a and b.
func GCD(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))
}

// LCM returns the least common multiple of a and b, and zero when either
// argument is zero.
func LCM(a, b *big.Int) *big.Int {
	if a.Sign() == 0 || b.Sign() == 0 {
		return new(big.Int)
	}
	g := GCD(a, b)
	l := new(big.Int).Div(new(big.Int).Abs(a), g)
	return l.Mul(l, new(big.Int).Abs(b))
}

// ExtendedGCD runs the extended Euclidean algorithm and returns g, x, y
// such that a*x + b*y = g = gcd(a, b).
func ExtendedGCD(a, b *big.Int) (g, x, y *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldS, s := big.NewInt(1), new(big.Int)
	oldT, t := new(big.Int), big.NewInt(1)

	for r.Sign() != 0 {
		q := new(big.Int).Div(oldR, r)
		oldR, r = r, new(big.Int).Sub(oldR, new(big.Int).Mul(q, r))
		oldS, s = s, new(big.Int).Sub(oldS, new(big.Int).Mul(q, s))
		oldT, t = t, new(big.Int).Sub(oldT, new(big.Int).Mul(q, t))
	}
	return oldR, oldS, oldT
}

// ModInverse returns the multiplicative inverse of a modulo mod. It fails
// with a crypto error when gcd(a, mod) != 1, in which case no inverse
// exists and the caller has to pick new parameters.
func ModInverse(a, mod *big.Int) (*big.Int, error) {
	aRed := new(big.Int).Mod(a, mod)
	g, x, _ := ExtendedGCD(aRed, mod)
	if g.Cmp(one) != 0 {
		return nil, securestats.NewError(securestats.ErrCrypto,
			"modular inverse does not exist")
	}
	return x.Mod(x, mod), nil
}
