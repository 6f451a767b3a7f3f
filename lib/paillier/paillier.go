// Package paillier implements the Paillier public-key cryptosystem. It is
// additively homomorphic: the product of two ciphertexts decrypts to the
// sum of their plaintexts and a ciphertext raised to a constant decrypts
// to the scaled plaintext. Homomorphic multiplication of two ciphertexts
// is not possible, which shapes what the aggregator on top of this
// package can compute privately.
package paillier

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/lib/arith"
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// keygenAttempts bounds the retries when the L(g^lambda) inverse does not
// exist, which only happens for degenerate prime pairs.
const keygenAttempts = 4

// PublicKey is the encryption key (n, g) with n = p*q and g = n+1.
type PublicKey struct {
	N *big.Int
	G *big.Int
}

// PrivateKey is the decryption key (lambda, mu) for a public key.
type PrivateKey struct {
	Lambda *big.Int
	Mu     *big.Int
	Pub    *PublicKey
}

// KeyPair bundles both halves of a Paillier key.
type KeyPair struct {
	Public  *PublicKey
	Private *PrivateKey
}

// Ciphertext is an encrypted value. It carries the public key it was
// produced under so that combining ciphertexts from different keys can be
// rejected instead of yielding garbage.
type Ciphertext struct {
	N     *big.Int
	G     *big.Int
	Value *big.Int
}

// NSquared returns n^2, the ciphertext-space modulus.
func (pub *PublicKey) NSquared() *big.Int {
	return new(big.Int).Mul(pub.N, pub.N)
}

// GenerateKey produces a fresh key pair with a modulus of the given bit
// length. The two primes are drawn independently from the stream and
// tested with Miller-Rabin; generation can take seconds for production
// sizes, so callers should run it off the request path.
func GenerateKey(bits int, rand cipher.Stream) (*KeyPair, error) {
	if bits < 64 {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"key length %d below minimum of 64 bits", bits)
	}

	for attempt := 0; attempt < keygenAttempts; attempt++ {
		p := generatePrime(bits/2, rand)
		q := generatePrime(bits/2, rand)
		for p.Cmp(q) == 0 {
			q = generatePrime(bits/2, rand)
		}

		n := new(big.Int).Mul(p, q)
		n2 := new(big.Int).Mul(n, n)
		g := new(big.Int).Add(n, one)

		pMinus := new(big.Int).Sub(p, one)
		qMinus := new(big.Int).Sub(q, one)
		lambda := arith.LCM(pMinus, qMinus)

		u := lFunc(arith.ModPow(g, lambda, n2), n)
		mu, err := arith.ModInverse(u, n)
		if err != nil {
			// No inverse means the primes were unusable; retry with a
			// fresh pair.
			continue
		}

		pub := &PublicKey{N: n, G: g}
		return &KeyPair{
			Public:  pub,
			Private: &PrivateKey{Lambda: lambda, Mu: mu, Pub: pub},
		}, nil
	}
	return nil, securestats.NewError(securestats.ErrCrypto,
		"modular inverse does not exist after repeated key generation")
}

// lFunc is L(x) = (x-1)/n, an exact division for valid inputs.
func lFunc(x, n *big.Int) *big.Int {
	return new(big.Int).Div(new(big.Int).Sub(x, one), n)
}

// Encrypt encrypts a signed plaintext m with |m| < n/2. Negative values
// are represented as n - |m| and recovered by Decrypt. The blinding
// factor r is resampled until it is coprime to n so that repeated
// encryptions of the same value yield unrelated ciphertexts.
func (pub *PublicKey) Encrypt(m *big.Int, rand cipher.Stream) (*Ciphertext, error) {
	half := new(big.Int).Rsh(pub.N, 1)
	if new(big.Int).Abs(m).Cmp(half) >= 0 {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"plaintext magnitude exceeds n/2")
	}
	mEnc := new(big.Int).Mod(m, pub.N)

	n2 := pub.NSquared()
	r := randomCoprime(pub.N, rand)

	c := arith.ModPow(pub.G, mEnc, n2)
	c.Mul(c, arith.ModPow(r, pub.N, n2))
	c.Mod(c, n2)

	return &Ciphertext{N: pub.N, G: pub.G, Value: c}, nil
}

// randomCoprime draws r in [1, n) with gcd(r, n) = 1.
func randomCoprime(n *big.Int, rand cipher.Stream) *big.Int {
	for {
		r := random.Int(n, rand)
		if r.Sign() == 0 {
			continue
		}
		if arith.GCD(r, n).Cmp(one) == 0 {
			return r
		}
	}
}

// Decrypt recovers the signed plaintext of a ciphertext produced under
// this key. Ciphertexts from another key are rejected.
func (priv *PrivateKey) Decrypt(c *Ciphertext) (*big.Int, error) {
	if c.N.Cmp(priv.Pub.N) != 0 {
		return nil, securestats.NewError(securestats.ErrCrypto,
			"ciphertext was generated under a different key")
	}

	n := priv.Pub.N
	n2 := priv.Pub.NSquared()

	u := lFunc(arith.ModPow(c.Value, priv.Lambda, n2), n)
	m := u.Mul(u, priv.Mu)
	m.Mod(m, n)

	// Values above n/2 encode negatives.
	half := new(big.Int).Rsh(n, 1)
	if m.Cmp(half) > 0 {
		m.Sub(m, n)
	}
	return m, nil
}

// AddCipher combines two ciphertexts into one that decrypts to the sum of
// their plaintexts. Both must share the same public key.
func AddCipher(c1, c2 *Ciphertext) (*Ciphertext, error) {
	if c1.N.Cmp(c2.N) != 0 {
		return nil, securestats.NewError(securestats.ErrCrypto,
			"cannot combine ciphertexts from different keys")
	}
	n2 := new(big.Int).Mul(c1.N, c1.N)
	v := new(big.Int).Mul(c1.Value, c2.Value)
	v.Mod(v, n2)
	return &Ciphertext{N: c1.N, G: c1.G, Value: v}, nil
}

// AddPlain folds the constant k into a ciphertext, which then decrypts to
// plaintext + k.
func AddPlain(c *Ciphertext, k *big.Int) *Ciphertext {
	n2 := new(big.Int).Mul(c.N, c.N)
	kEnc := new(big.Int).Mod(k, c.N)
	v := new(big.Int).Mul(c.Value, arith.ModPow(c.G, kEnc, n2))
	v.Mod(v, n2)
	return &Ciphertext{N: c.N, G: c.G, Value: v}
}

// MulPlain scales a ciphertext by the constant k, so it decrypts to
// plaintext * k.
func MulPlain(c *Ciphertext, k *big.Int) *Ciphertext {
	n2 := new(big.Int).Mul(c.N, c.N)
	kEnc := new(big.Int).Mod(k, c.N)
	return &Ciphertext{
		N:     c.N,
		G:     c.G,
		Value: arith.ModPow(c.Value, kEnc, n2),
	}
}
