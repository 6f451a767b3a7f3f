package computation

import (
	"math/big"

	"github.com/medcollab/securestats/lib/paillier"
	"github.com/medcollab/securestats/lib/shamir"
)

// The *Data types below are the persisted and wire forms of the crypto
// payloads. Big integers travel as raw big-endian bytes so the encoding
// stays stable across versions: a ciphertext is {n, g, value}, a share is
// {index, value, threshold, total_shares}. Stored submissions are re-read
// for aggregation long after they were written, so none of these shapes
// may change incompatibly.

// CiphertextData is the persisted form of a Paillier ciphertext.
type CiphertextData struct {
	N     []byte
	G     []byte
	Value []byte
}

// NewCiphertextData converts a ciphertext into its persisted form.
func NewCiphertextData(c *paillier.Ciphertext) *CiphertextData {
	return &CiphertextData{
		N:     c.N.Bytes(),
		G:     c.G.Bytes(),
		Value: c.Value.Bytes(),
	}
}

// Ciphertext restores the in-memory ciphertext.
func (d *CiphertextData) Ciphertext() *paillier.Ciphertext {
	return &paillier.Ciphertext{
		N:     new(big.Int).SetBytes(d.N),
		G:     new(big.Int).SetBytes(d.G),
		Value: new(big.Int).SetBytes(d.Value),
	}
}

// ShareData is the persisted form of a secret share. Index is always at
// least 1.
type ShareData struct {
	Index       int
	Value       []byte
	Threshold   int
	TotalShares int
}

// NewShareData converts a share into its persisted form.
func NewShareData(s *shamir.Share) *ShareData {
	return &ShareData{
		Index:       s.Index,
		Value:       s.Value.Bytes(),
		Threshold:   s.Threshold,
		TotalShares: s.Total,
	}
}

// Share restores the in-memory share.
func (d *ShareData) Share() *shamir.Share {
	return &shamir.Share{
		Index:     d.Index,
		Value:     new(big.Int).SetBytes(d.Value),
		Threshold: d.Threshold,
		Total:     d.TotalShares,
	}
}

// EncryptedValueData is the persisted form of the tagged payload union.
type EncryptedValueData struct {
	Kind   string
	Cipher *CiphertextData
	Opaque []byte
}

// NewEncryptedValueData converts a payload value into its persisted form.
func NewEncryptedValueData(v *EncryptedValue) *EncryptedValueData {
	out := &EncryptedValueData{Kind: v.Kind, Opaque: v.Opaque}
	if v.Paillier != nil {
		out.Cipher = NewCiphertextData(v.Paillier)
	}
	return out
}

// Value restores the in-memory payload value.
func (d *EncryptedValueData) Value() *EncryptedValue {
	out := &EncryptedValue{Kind: d.Kind, Opaque: d.Opaque}
	if d.Cipher != nil {
		out.Paillier = d.Cipher.Ciphertext()
	}
	return out
}

// PayloadData is the persisted form of a submission payload.
type PayloadData struct {
	Values []*EncryptedValueData
	Shares []*ShareVectorData
}

// ShareVectorData groups the shares of one submitted value.
type ShareVectorData struct {
	Shares []*ShareData
}

// NewPayloadData converts a payload into its persisted form.
func NewPayloadData(p Payload) *PayloadData {
	out := &PayloadData{}
	for _, v := range p.Values {
		out.Values = append(out.Values, NewEncryptedValueData(v))
	}
	for _, vec := range p.Shares {
		sv := &ShareVectorData{}
		for _, s := range vec {
			sv.Shares = append(sv.Shares, NewShareData(s))
		}
		out.Shares = append(out.Shares, sv)
	}
	return out
}

// Payload restores the in-memory payload.
func (d *PayloadData) Payload() Payload {
	out := Payload{}
	for _, v := range d.Values {
		out.Values = append(out.Values, v.Value())
	}
	for _, sv := range d.Shares {
		vec := make([]*shamir.Share, 0, len(sv.Shares))
		for _, s := range sv.Shares {
			vec = append(vec, s.Share())
		}
		out.Shares = append(out.Shares, vec)
	}
	return out
}

// KeyPairData is the persisted form of the process-wide Paillier key.
type KeyPairData struct {
	N      []byte
	G      []byte
	Lambda []byte
	Mu     []byte
}

// NewKeyPairData converts a key pair into its persisted form.
func NewKeyPairData(kp *paillier.KeyPair) *KeyPairData {
	return &KeyPairData{
		N:      kp.Public.N.Bytes(),
		G:      kp.Public.G.Bytes(),
		Lambda: kp.Private.Lambda.Bytes(),
		Mu:     kp.Private.Mu.Bytes(),
	}
}

// KeyPair restores the in-memory key pair.
func (d *KeyPairData) KeyPair() *paillier.KeyPair {
	pub := &paillier.PublicKey{
		N: new(big.Int).SetBytes(d.N),
		G: new(big.Int).SetBytes(d.G),
	}
	return &paillier.KeyPair{
		Public: pub,
		Private: &paillier.PrivateKey{
			Lambda: new(big.Int).SetBytes(d.Lambda),
			Mu:     new(big.Int).SetBytes(d.Mu),
			Pub:    pub,
		},
	}
}
