package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcollab/securestats/computation"
)

// invite opens a computation with pending invitations and returns its id.
func invitedComputation(t *testing.T, f *fixture, orgs ...string) string {
	reply, err := f.service.CreateComputation(&CreateComputation{
		Creator:         "org-a",
		Statistic:       computation.SecureAverage,
		Security:        computation.Homomorphic,
		Threshold:       2,
		MinParticipants: 2,
		InvitedOrgs:     orgs,
	})
	require.NoError(t, err)
	return reply.ID
}

func TestSweepWarnsOnce(t *testing.T) {
	f := newFixture(t)
	id := invitedComputation(t, f, "org-b")

	// Inside the final day of the retention window.
	f.clock.advance(invitationRetention - 12*time.Hour)
	require.NoError(t, f.service.SweepInvitations())

	warnings := f.notifier.ofType(InvitationExpiring)
	require.Len(t, warnings, 1)
	assert.Equal(t, id, warnings[0].ComputationID)
	assert.Equal(t, "org-b", warnings[0].Organization)

	// A second pass does not repeat the advisory.
	require.NoError(t, f.service.SweepInvitations())
	assert.Len(t, f.notifier.ofType(InvitationExpiring), 1)

	// The invitation is still pending and answerable.
	invs, err := f.store.Invitations(id)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, computation.Pending, invs[0].Status)
}

func TestSweepBeforeWindowIsQuiet(t *testing.T) {
	f := newFixture(t)
	invitedComputation(t, f, "org-b")

	f.clock.advance(invitationRetention - 3*24*time.Hour)
	require.NoError(t, f.service.SweepInvitations())
	assert.Empty(t, f.notifier.ofType(InvitationExpiring))
}

func TestSweepExpiresAndCancels(t *testing.T) {
	f := newFixture(t)
	id := invitedComputation(t, f, "org-b")

	f.clock.advance(invitationRetention + time.Hour)
	require.NoError(t, f.service.SweepInvitations())

	invs, err := f.store.Invitations(id)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, computation.Declined, invs[0].Status)

	// The only invitee timed out, so the round collapses.
	comp, err := f.store.Computation(id)
	require.NoError(t, err)
	assert.Equal(t, computation.Cancelled, comp.Status)
}

func TestSweepKeepsQuorum(t *testing.T) {
	f := newFixture(t)
	id := invitedComputation(t, f, "org-b", "org-c", "org-d")

	for _, org := range []string{"org-b", "org-c"} {
		_, err := f.service.RespondInvitation(&RespondInvitation{
			ComputationID: id, Organization: org, Accept: true,
		})
		require.NoError(t, err)
	}

	// org-d never answers; its expiry resolves the round with the two
	// accepted participants.
	f.clock.advance(invitationRetention + time.Hour)
	require.NoError(t, f.service.SweepInvitations())

	comp, err := f.store.Computation(id)
	require.NoError(t, err)
	assert.Equal(t, computation.WaitingForData, comp.Status)
}

func TestStartSweeperStops(t *testing.T) {
	f := newFixture(t)
	stop := f.service.StartSweeper(5 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	stop()
}
