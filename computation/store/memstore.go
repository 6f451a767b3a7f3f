package store

import (
	"sync"
	"time"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/computation"
	"github.com/medcollab/securestats/lib/paillier"
)

// MemStore keeps everything in memory behind one mutex. It backs the
// service tests and small single-process setups.
type MemStore struct {
	sync.Mutex
	computations map[string]*computation.Computation
	participants map[string][]*computation.Participant
	invitations  map[string][]*computation.Invitation
	submissions  map[string][]*computation.Submission
	keypair      *paillier.KeyPair
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		computations: make(map[string]*computation.Computation),
		participants: make(map[string][]*computation.Participant),
		invitations:  make(map[string][]*computation.Invitation),
		submissions:  make(map[string][]*computation.Submission),
	}
}

// CreateComputation implements Store.
func (m *MemStore) CreateComputation(c *computation.Computation) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.computations[c.ID]; ok {
		return securestats.Errorf(securestats.ErrValidation,
			"computation %s already exists", c.ID)
	}
	m.computations[c.ID] = c.Copy()
	return nil
}

// Computation implements Store.
func (m *MemStore) Computation(id string) (*computation.Computation, error) {
	m.Lock()
	defer m.Unlock()

	c, ok := m.computations[id]
	if !ok {
		return nil, securestats.Errorf(securestats.ErrNotFound,
			"unknown computation %s", id)
	}
	return c.Copy(), nil
}

// UpdateComputation implements Store.
func (m *MemStore) UpdateComputation(c *computation.Computation) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.computations[c.ID]; !ok {
		return securestats.Errorf(securestats.ErrNotFound,
			"unknown computation %s", c.ID)
	}
	m.computations[c.ID] = c.Copy()
	return nil
}

// DeleteComputation implements Store.
func (m *MemStore) DeleteComputation(id string) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.computations[id]; !ok {
		return securestats.Errorf(securestats.ErrNotFound,
			"unknown computation %s", id)
	}
	delete(m.computations, id)
	delete(m.participants, id)
	delete(m.invitations, id)
	delete(m.submissions, id)
	return nil
}

// AddParticipant implements Store.
func (m *MemStore) AddParticipant(p *computation.Participant) error {
	m.Lock()
	defer m.Unlock()

	for _, existing := range m.participants[p.ComputationID] {
		if existing.Organization == p.Organization {
			return securestats.Errorf(securestats.ErrValidation,
				"organization %s is already a participant", p.Organization)
		}
	}
	m.participants[p.ComputationID] = append(m.participants[p.ComputationID], p.Copy())
	return nil
}

// Participants implements Store.
func (m *MemStore) Participants(computationID string) ([]*computation.Participant, error) {
	m.Lock()
	defer m.Unlock()

	list := m.participants[computationID]
	out := make([]*computation.Participant, len(list))
	for i, p := range list {
		out[i] = p.Copy()
	}
	return out, nil
}

// AddInvitation implements Store.
func (m *MemStore) AddInvitation(inv *computation.Invitation) error {
	m.Lock()
	defer m.Unlock()

	list := m.invitations[inv.ComputationID]
	for i, existing := range list {
		if existing.Organization != inv.Organization {
			continue
		}
		if existing.Status == computation.Pending {
			return securestats.Errorf(securestats.ErrValidation,
				"organization %s already has a pending invitation",
				inv.Organization)
		}
		// Re-invite after a resolved invitation replaces the record.
		list[i] = inv.Copy()
		return nil
	}
	m.invitations[inv.ComputationID] = append(list, inv.Copy())
	return nil
}

// UpdateInvitation implements Store.
func (m *MemStore) UpdateInvitation(inv *computation.Invitation) error {
	m.Lock()
	defer m.Unlock()

	list := m.invitations[inv.ComputationID]
	for i, existing := range list {
		if existing.Organization == inv.Organization {
			list[i] = inv.Copy()
			return nil
		}
	}
	return securestats.Errorf(securestats.ErrNotFound,
		"no invitation for organization %s", inv.Organization)
}

// Invitations implements Store.
func (m *MemStore) Invitations(computationID string) ([]*computation.Invitation, error) {
	m.Lock()
	defer m.Unlock()

	list := m.invitations[computationID]
	out := make([]*computation.Invitation, len(list))
	for i, inv := range list {
		out[i] = inv.Copy()
	}
	return out, nil
}

// PendingInvitationsBefore implements Store.
func (m *MemStore) PendingInvitationsBefore(cutoff time.Time) ([]*computation.Invitation, error) {
	m.Lock()
	defer m.Unlock()

	var out []*computation.Invitation
	for _, list := range m.invitations {
		for _, inv := range list {
			if inv.Status == computation.Pending && inv.InvitedAt.Before(cutoff) {
				out = append(out, inv.Copy())
			}
		}
	}
	return out, nil
}

// AddSubmission implements Store.
func (m *MemStore) AddSubmission(s *computation.Submission) error {
	m.Lock()
	defer m.Unlock()

	for _, existing := range m.submissions[s.ComputationID] {
		if existing.Organization == s.Organization {
			return ErrSubmissionExists
		}
	}
	m.submissions[s.ComputationID] = append(m.submissions[s.ComputationID], s.Copy())
	return nil
}

// Submissions implements Store.
func (m *MemStore) Submissions(computationID string) ([]*computation.Submission, error) {
	m.Lock()
	defer m.Unlock()

	list := m.submissions[computationID]
	out := make([]*computation.Submission, len(list))
	for i, s := range list {
		out[i] = s.Copy()
	}
	return out, nil
}

// SaveKeyPair implements Store.
func (m *MemStore) SaveKeyPair(kp *paillier.KeyPair) error {
	m.Lock()
	defer m.Unlock()

	m.keypair = kp
	return nil
}

// KeyPair implements Store.
func (m *MemStore) KeyPair() (*paillier.KeyPair, error) {
	m.Lock()
	defer m.Unlock()

	if m.keypair == nil {
		return nil, ErrNoKeyPair
	}
	return m.keypair, nil
}

// Close implements Store.
func (m *MemStore) Close() error {
	return nil
}
