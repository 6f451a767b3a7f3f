// Package store defines the persistence port of the orchestrator and two
// adapters for it: an in-memory store for tests and a bbolt-backed store
// for deployments. The port guarantees that submission uniqueness checks
// and inserts are atomic, which is what makes double-submission detection
// race-free.
package store

import (
	"time"

	"golang.org/x/xerrors"

	"github.com/medcollab/securestats/computation"
	"github.com/medcollab/securestats/lib/paillier"
)

// ErrSubmissionExists reports that an organization already submitted to a
// computation. Callers turn it into the ALREADY_SUBMITTED reply code; it
// is an expected outcome, not a fault.
var ErrSubmissionExists = xerrors.New("submission already exists")

// ErrNoKeyPair reports that no key pair has been persisted yet.
var ErrNoKeyPair = xerrors.New("no key pair stored")

// Store is the persistence port. All mutations are atomic; reads return
// copies that the caller may modify freely.
type Store interface {
	CreateComputation(c *computation.Computation) error
	// Computation fails with a not-found error for unknown ids.
	Computation(id string) (*computation.Computation, error)
	UpdateComputation(c *computation.Computation) error
	// DeleteComputation cascades over the participants, invitations and
	// submissions of the computation.
	DeleteComputation(id string) error

	// AddParticipant enforces uniqueness per (computation, organization).
	AddParticipant(p *computation.Participant) error
	Participants(computationID string) ([]*computation.Participant, error)

	// AddInvitation enforces at most one pending invitation per
	// (computation, organization); a resolved invitation is replaced on
	// re-invite.
	AddInvitation(inv *computation.Invitation) error
	UpdateInvitation(inv *computation.Invitation) error
	Invitations(computationID string) ([]*computation.Invitation, error)
	// PendingInvitationsBefore returns the pending invitations issued
	// before the cutoff, across all computations, for the expiry sweep.
	PendingInvitationsBefore(cutoff time.Time) ([]*computation.Invitation, error)

	// AddSubmission atomically checks uniqueness and inserts, failing
	// with ErrSubmissionExists on a duplicate.
	AddSubmission(s *computation.Submission) error
	Submissions(computationID string) ([]*computation.Submission, error)

	SaveKeyPair(kp *paillier.KeyPair) error
	// KeyPair fails with ErrNoKeyPair when nothing has been saved.
	KeyPair() (*paillier.KeyPair, error)

	Close() error
}
