package service

import (
	"github.com/medcollab/securestats/computation"
)

// The request/reply pairs below form the transport-independent API of
// the orchestrator. Whatever surface ends up carrying them (RPC, queue,
// CLI) marshals these structs and nothing else.

// CreateComputation opens a new computation. With InvitedOrgs the
// computation starts private and pending the invitation round; without,
// it starts open for joining.
type CreateComputation struct {
	Creator         string
	Statistic       computation.Statistic
	Security        computation.SecurityMethod
	Threshold       int
	MinParticipants int
	// Percentile is required for secure_percentile and ignored
	// otherwise.
	Percentile  float64
	InvitedOrgs []string
}

// CreateComputationReply returns the id and initial status.
type CreateComputationReply struct {
	ID     string
	Status computation.Status
}

// InviteParticipant invites an organization on behalf of the inviter,
// which must be the creator or an existing participant.
type InviteParticipant struct {
	ComputationID string
	Organization  string
	Inviter       string
}

// InviteParticipantReply is empty; failures travel as errors.
type InviteParticipantReply struct{}

// RespondInvitation accepts or declines a pending invitation.
type RespondInvitation struct {
	ComputationID string
	Organization  string
	Accept        bool
}

// RespondInvitationReply returns the computation status after the
// response has been folded in.
type RespondInvitationReply struct {
	Status computation.Status
}

// JoinComputation adds an organization to an open computation.
type JoinComputation struct {
	ComputationID string
	Organization  string
}

// JoinComputationReply returns the participant count after the join.
type JoinComputationReply struct {
	Participants int
}

// SubmitShare submits raw values for encryption and persistence. The
// values arrive as strings straight from the caller's data extraction;
// entries that do not parse as numbers count against the invalid-rate
// limit.
type SubmitShare struct {
	ComputationID string
	Organization  string
	Values        []string
}

// SubmitShareReply reports the outcome code (OK or ALREADY_SUBMITTED),
// the number of accepted values and the computation status.
type SubmitShareReply struct {
	Code     string
	Accepted int
	Status   computation.Status
}

// VerifyIntegrity checks every submission's payload shape against the
// computation's declared security method without aggregating anything.
type VerifyIntegrity struct {
	ComputationID string
}

// VerifyIntegrityReply lists the organizations whose submissions violate
// the declared shape.
type VerifyIntegrityReply struct {
	Valid      bool
	Violations []string
}

// Compute runs the aggregation once the readiness predicate holds.
type Compute struct {
	ComputationID string
}

// ComputeReply carries the outcome: the status after the call, the
// result when completed, or the stored error code and message when the
// computation failed. Calling Compute on a terminal computation returns
// the stored outcome without re-executing.
type ComputeReply struct {
	Status       computation.Status
	Result       *computation.Result
	ErrorCode    string
	ErrorMessage string
}

// GetStatus reports the lifecycle position of a computation.
type GetStatus struct {
	ComputationID string
}

// GetStatusReply carries the status and progress counters.
type GetStatusReply struct {
	Status          computation.Status
	Participants    int
	Submissions     int
	MinParticipants int
}

// GetResult fetches the result of a completed computation.
type GetResult struct {
	ComputationID string
}

// GetResultReply carries the stored result.
type GetResultReply struct {
	Result *computation.Result
}

// DeleteComputation removes a computation and everything attached to it.
// Only the creator may delete, and only outside processing and
// completed states.
type DeleteComputation struct {
	ComputationID string
	Organization  string
}

// DeleteComputationReply is empty; failures travel as errors.
type DeleteComputationReply struct{}

// GetPublicKey fetches the current Paillier public key under which
// submissions are encrypted.
type GetPublicKey struct{}

// GetPublicKeyReply carries the key in its wire shape.
type GetPublicKeyReply struct {
	N []byte
	G []byte
}

// RotateKey installs a fresh key pair. Ciphertexts under the previous
// key stop combining with new ones.
type RotateKey struct{}

// RotateKeyReply carries the new public key.
type RotateKeyReply struct {
	N []byte
	G []byte
}
