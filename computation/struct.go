// Package computation holds the domain model of a secure multi-party
// computation: the computation record itself with its lifecycle status,
// the participants, invitations and encrypted submissions attached to it,
// and the stable wire shapes under which crypto payloads are persisted.
package computation

import (
	"time"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/lib/paillier"
	"github.com/medcollab/securestats/lib/shamir"
)

// Status is the lifecycle stage of a computation.
type Status string

const (
	// Created is an invitation-only computation waiting for its first
	// responses; it is not yet open to the public.
	Created Status = "created"
	// WaitingForParticipants is an open computation organizations can
	// still join.
	WaitingForParticipants Status = "waiting_for_participants"
	// WaitingForData has enough participants and collects submissions.
	WaitingForData Status = "waiting_for_data"
	// Processing marks a running aggregation.
	Processing Status = "processing"
	// Completed is terminal; the result is stored.
	Completed Status = "completed"
	// Error is terminal; the error code and message are stored.
	Error Status = "error"
	// Cancelled is reached when all invitations resolve without enough
	// participants.
	Cancelled Status = "cancelled"
)

// Terminal tells whether the status can never change again.
func (s Status) Terminal() bool {
	return s == Completed || s == Error
}

// Deletable tells whether a computation in this status may be removed.
// Processing and terminal-completed computations are protected, as are
// cancelled ones which serve as an audit record of the declined round.
func (s Status) Deletable() bool {
	switch s {
	case Created, WaitingForParticipants, WaitingForData, Error:
		return true
	}
	return false
}

// SecurityMethod selects how submitted values are protected.
type SecurityMethod string

const (
	// Standard protects values with threshold secret sharing only.
	Standard SecurityMethod = "standard"
	// Homomorphic protects values with Paillier encryption.
	Homomorphic SecurityMethod = "homomorphic"
	// Hybrid applies both, keeping shares as a recovery path next to the
	// homomorphic ciphertexts.
	Hybrid SecurityMethod = "hybrid"
)

// Valid reports whether the method is one of the supported three.
func (m SecurityMethod) Valid() bool {
	return m == Standard || m == Homomorphic || m == Hybrid
}

// Statistic is the aggregate a computation produces.
type Statistic string

const (
	SecureSum         Statistic = "secure_sum"
	SecureAverage     Statistic = "secure_average"
	SecureVariance    Statistic = "secure_variance"
	SecurePercentile  Statistic = "secure_percentile"
	SecureCorrelation Statistic = "secure_correlation"
)

// Valid reports whether the statistic is supported.
func (st Statistic) Valid() bool {
	switch st {
	case SecureSum, SecureAverage, SecureVariance, SecurePercentile,
		SecureCorrelation:
		return true
	}
	return false
}

// Stable machine-readable codes surfaced in replies and stored on failed
// computations. They are part of the external contract and must not
// change.
const (
	CodeOK                      = "OK"
	CodeAlreadySubmitted        = "ALREADY_SUBMITTED"
	CodeHighInvalidDataRate     = "HIGH_INVALID_DATA_RATE"
	CodeNoDataSubmitted         = "NO_DATA_SUBMITTED"
	CodeNoParticipants          = "NO_PARTICIPANTS"
	CodeInsufficientSubmissions = "INSUFFICIENT_SUBMISSIONS"
	CodeCalculationError        = "GENERAL_CALCULATION_ERROR"
)

// Computation is the root record of one joint calculation. The result is
// set if and only if the status is Completed, the error fields if and
// only if it is Error; the orchestrator is the only writer.
type Computation struct {
	ID              string
	Creator         string
	Statistic       Statistic
	Security        SecurityMethod
	Threshold       int
	MinParticipants int
	// Percentile is the p parameter of SecurePercentile computations and
	// unused otherwise.
	Percentile float64

	Status       Status
	Result       *Result
	ErrorCode    string
	ErrorMessage string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
}

// Copy returns a deep copy so that stores can hand out records without
// aliasing their internal state.
func (c *Computation) Copy() *Computation {
	out := *c
	if c.Result != nil {
		r := *c.Result
		out.Result = &r
	}
	return &out
}

// Result is the structured outcome of a completed computation.
type Result struct {
	Statistic  Statistic
	Value      float64
	Count      int
	ComputedAt time.Time
}

// Participant links an organization to a computation. The pair is unique
// and the record never changes after creation.
type Participant struct {
	ComputationID string
	Organization  string
	JoinedAt      time.Time
}

// Copy returns a copy of the participant record.
func (p *Participant) Copy() *Participant {
	out := *p
	return &out
}

// InvitationStatus is the response state of an invitation.
type InvitationStatus string

const (
	// Pending invitations await a response and expire after the
	// retention window.
	Pending InvitationStatus = "pending"
	// Accepted and Declined are final; an invitation transitions at most
	// once.
	Accepted InvitationStatus = "accepted"
	Declined InvitationStatus = "declined"
)

// Invitation asks an organization to join a computation. At most one
// pending invitation exists per (computation, organization).
type Invitation struct {
	ComputationID string
	Organization  string
	Inviter       string
	Status        InvitationStatus
	InvitedAt     time.Time
	RespondedAt   time.Time
	// ExpiryNotified records that the expiring-soon advisory has been
	// pushed, so the sweeper sends it once.
	ExpiryNotified bool
}

// Copy returns a copy of the invitation record.
func (i *Invitation) Copy() *Invitation {
	out := *i
	return &out
}

// Submission is the immutable encrypted contribution of one organization.
// A second submission from the same organization is rejected, never
// merged.
type Submission struct {
	ComputationID string
	Organization  string
	Payload       Payload
	CreatedAt     time.Time
}

// Copy returns a deep copy of the submission.
func (s *Submission) Copy() *Submission {
	out := *s
	out.Payload = s.Payload.Copy()
	return &out
}

// Payload carries the protected values of a submission: homomorphic
// ciphertexts, per-value share vectors, or both for the hybrid method.
type Payload struct {
	Values []*EncryptedValue
	Shares [][]*shamir.Share
}

// Copy returns a deep copy of the payload.
func (p Payload) Copy() Payload {
	out := Payload{}
	if p.Values != nil {
		out.Values = make([]*EncryptedValue, len(p.Values))
		for i, v := range p.Values {
			cp := *v
			out.Values[i] = &cp
		}
	}
	if p.Shares != nil {
		out.Shares = make([][]*shamir.Share, len(p.Shares))
		for i, vec := range p.Shares {
			out.Shares[i] = make([]*shamir.Share, len(vec))
			for j, sh := range vec {
				cp := *sh
				out.Shares[i][j] = &cp
			}
		}
	}
	return out
}

// Matches checks that the payload shape is the one the security method
// declares, which VerifyIntegrity runs before any aggregation.
func (p Payload) Matches(m SecurityMethod) bool {
	allPaillier := len(p.Values) > 0
	for _, v := range p.Values {
		if v.Kind != KindPaillier {
			allPaillier = false
		}
	}
	switch m {
	case Standard:
		return len(p.Shares) > 0 && len(p.Values) == 0
	case Homomorphic:
		return allPaillier && len(p.Shares) == 0
	case Hybrid:
		return allPaillier && len(p.Shares) == len(p.Values)
	}
	return false
}

// Payload value kinds. An opaque value is data some caller stored without
// cryptographic protection; keeping the discriminant explicit prevents it
// from ever being treated as a ciphertext.
const (
	KindPaillier = "paillier"
	KindOpaque   = "opaque"
)

// EncryptedValue is the tagged union of payload encodings.
type EncryptedValue struct {
	Kind     string
	Paillier *paillier.Ciphertext
	Opaque   []byte
}

// NewPaillierValue wraps a ciphertext in the tagged union.
func NewPaillierValue(c *paillier.Ciphertext) *EncryptedValue {
	return &EncryptedValue{Kind: KindPaillier, Paillier: c}
}

// NewOpaqueValue wraps raw bytes that carry no cryptographic protection.
func NewOpaqueValue(data []byte) *EncryptedValue {
	return &EncryptedValue{Kind: KindOpaque, Opaque: append([]byte(nil), data...)}
}

// Cipher returns the Paillier ciphertext and refuses opaque values, so a
// fallback payload can never slip into a homomorphic combination.
func (v *EncryptedValue) Cipher() (*paillier.Ciphertext, error) {
	if v.Kind != KindPaillier || v.Paillier == nil {
		return nil, securestats.Errorf(securestats.ErrCrypto,
			"payload of kind %q is not homomorphically protected", v.Kind)
	}
	return v.Paillier, nil
}
