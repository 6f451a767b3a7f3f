package computation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/lib/paillier"
	"github.com/medcollab/securestats/lib/shamir"
)

func TestStatus(t *testing.T) {
	assert.True(t, Completed.Terminal())
	assert.True(t, Error.Terminal())
	assert.False(t, Processing.Terminal())
	assert.False(t, Cancelled.Terminal())

	assert.True(t, Created.Deletable())
	assert.True(t, Error.Deletable())
	assert.False(t, Processing.Deletable())
	assert.False(t, Completed.Deletable())
	assert.False(t, Cancelled.Deletable())
}

func TestSecurityMethod(t *testing.T) {
	assert.True(t, Standard.Valid())
	assert.True(t, Hybrid.Valid())
	assert.False(t, SecurityMethod("plain").Valid())
}

func TestStatistic(t *testing.T) {
	assert.True(t, SecureAverage.Valid())
	assert.False(t, Statistic("secure_median").Valid())
}

func TestEncryptedValueTag(t *testing.T) {
	c := &paillier.Ciphertext{
		N:     big.NewInt(77),
		G:     big.NewInt(78),
		Value: big.NewInt(123),
	}

	v := NewPaillierValue(c)
	got, err := v.Cipher()
	require.NoError(t, err)
	assert.Equal(t, c, got)

	// An opaque value never passes as a ciphertext.
	o := NewOpaqueValue([]byte{1, 2, 3})
	_, err = o.Cipher()
	require.Error(t, err)
	assert.True(t, securestats.HasCode(err, securestats.ErrCrypto))
}

func TestPayloadMatches(t *testing.T) {
	stream := random.New()
	shares, err := shamir.Split(big.NewInt(42), 3, 2, stream)
	require.NoError(t, err)

	cipherOnly := Payload{Values: []*EncryptedValue{
		NewPaillierValue(&paillier.Ciphertext{
			N: big.NewInt(1), G: big.NewInt(2), Value: big.NewInt(3),
		}),
	}}
	shareOnly := Payload{Shares: [][]*shamir.Share{shares}}
	both := Payload{Values: cipherOnly.Values, Shares: shareOnly.Shares}
	opaque := Payload{Values: []*EncryptedValue{NewOpaqueValue([]byte{9})}}

	assert.True(t, cipherOnly.Matches(Homomorphic))
	assert.False(t, cipherOnly.Matches(Standard))
	assert.False(t, cipherOnly.Matches(Hybrid))

	assert.True(t, shareOnly.Matches(Standard))
	assert.False(t, shareOnly.Matches(Homomorphic))

	assert.True(t, both.Matches(Hybrid))
	assert.False(t, both.Matches(Homomorphic))

	assert.False(t, opaque.Matches(Homomorphic))
}

func TestPayloadRoundtrip(t *testing.T) {
	stream := random.New()
	kp, err := paillier.GenerateKey(256, stream)
	require.NoError(t, err)

	c, err := kp.Public.Encrypt(big.NewInt(4200), stream)
	require.NoError(t, err)
	shares, err := shamir.Split(big.NewInt(4200), 3, 2, stream)
	require.NoError(t, err)

	p := Payload{
		Values: []*EncryptedValue{NewPaillierValue(c)},
		Shares: [][]*shamir.Share{shares},
	}

	restored := NewPayloadData(p).Payload()
	require.Equal(t, 1, len(restored.Values))
	require.Equal(t, 1, len(restored.Shares))

	rc, err := restored.Values[0].Cipher()
	require.NoError(t, err)
	m, err := kp.Private.Decrypt(rc)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), m.Int64())

	got, err := shamir.Reconstruct(restored.Shares[0], 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), got.Int64())
}

func TestKeyPairDataRoundtrip(t *testing.T) {
	stream := random.New()
	kp, err := paillier.GenerateKey(256, stream)
	require.NoError(t, err)

	restored := NewKeyPairData(kp).KeyPair()
	c, err := restored.Public.Encrypt(big.NewInt(-77), stream)
	require.NoError(t, err)
	m, err := restored.Private.Decrypt(c)
	require.NoError(t, err)
	assert.Equal(t, int64(-77), m.Int64())
}

func TestCopyDoesNotAlias(t *testing.T) {
	c := &Computation{ID: "x", Status: Completed, Result: &Result{Value: 1}}
	cp := c.Copy()
	cp.Result.Value = 2
	assert.Equal(t, 1.0, c.Result.Value)

	s := &Submission{Payload: Payload{Values: []*EncryptedValue{
		NewOpaqueValue([]byte{1}),
	}}}
	scp := s.Copy()
	scp.Payload.Values[0].Kind = KindPaillier
	assert.Equal(t, KindOpaque, s.Payload.Values[0].Kind)
}
