package paillier

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"
)

// millerRabinRounds bounds the probability of accepting a composite by
// 4^-rounds, below 2^-80 for the 40 rounds used here.
const millerRabinRounds = 40

var smallPrimes = []int64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61,
	67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113,
}

// generatePrime draws odd candidates of the exact bit length from the
// stream until one passes the Miller-Rabin test.
func generatePrime(bits int, rand cipher.Stream) *big.Int {
	for {
		candidate := new(big.Int).SetBytes(random.Bits(uint(bits), true, rand))
		candidate.SetBit(candidate, 0, 1)
		if isPrime(candidate, rand) {
			return candidate
		}
	}
}

// isPrime runs trial division by small primes followed by millerRabinRounds
// rounds of Miller-Rabin with bases drawn from the stream.
func isPrime(n *big.Int, rand cipher.Stream) bool {
	for _, sp := range smallPrimes {
		p := big.NewInt(sp)
		switch n.Cmp(p) {
		case 0:
			return true
		case -1:
			return false
		}
		if new(big.Int).Mod(n, p).Sign() == 0 {
			return false
		}
	}

	// Write n-1 as d * 2^s with d odd.
	nMinusOne := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nMinusOne)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	// Witnesses are uniform in [2, n-2].
	span := new(big.Int).Sub(n, big.NewInt(3))
	for i := 0; i < millerRabinRounds; i++ {
		a := random.Int(span, rand)
		a.Add(a, two)

		x := new(big.Int).Exp(a, d, n)
		if x.Cmp(one) == 0 || x.Cmp(nMinusOne) == 0 {
			continue
		}

		composite := true
		for r := 1; r < s; r++ {
			x.Mul(x, x).Mod(x, n)
			if x.Cmp(nMinusOne) == 0 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}
