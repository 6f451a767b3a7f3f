package service

import (
	"time"

	"go.dedis.ch/onet/v3/log"

	"github.com/medcollab/securestats/computation"
)

const (
	// invitationRetention is how long a pending invitation stays
	// answerable before the sweeper declines it.
	invitationRetention = 7 * 24 * time.Hour
	// expiryWarning is how long before expiry the one-time
	// expiring-soon advisory goes out.
	expiryWarning = 24 * time.Hour
)

// StartSweeper launches the background invitation sweep and returns a
// stop function. Every interval the sweeper expires pending invitations
// past the retention window and warns about the ones entering their
// last day.
func (s *Service) StartSweeper(interval time.Duration) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.SweepInvitations(); err != nil {
					log.Error("invitation sweep failed:", err)
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}

// SweepInvitations runs one sweep pass. It is exported so a scheduler
// or test can trigger it without the ticker.
func (s *Service) SweepInvitations() error {
	now := s.clock.Now()

	// Everything invited before this cutoff is either expired or inside
	// the warning window.
	pending, err := s.store.PendingInvitationsBefore(
		now.Add(expiryWarning - invitationRetention))
	if err != nil {
		return err
	}

	for _, inv := range pending {
		expiry := inv.InvitedAt.Add(invitationRetention)
		if !expiry.After(now) {
			if err := s.expireInvitation(inv, now); err != nil {
				log.Error("expiring invitation for", inv.Organization,
					"on", inv.ComputationID, ":", err)
			}
			continue
		}
		if inv.ExpiryNotified {
			continue
		}
		inv.ExpiryNotified = true
		if err := s.store.UpdateInvitation(inv); err != nil {
			log.Error("marking invitation notified:", err)
			continue
		}
		s.notify(Event{
			Type:          InvitationExpiring,
			ComputationID: inv.ComputationID,
			Organization:  inv.Organization,
			Message:       "invitation expires within 24h",
		})
	}
	return nil
}

// expireInvitation declines a timed-out invitation and re-evaluates the
// invitation round, which may cancel the computation.
func (s *Service) expireInvitation(inv *computation.Invitation,
	now time.Time) error {

	inv.Status = computation.Declined
	inv.RespondedAt = now
	if err := s.store.UpdateInvitation(inv); err != nil {
		return err
	}
	log.Lvl2("invitation for", inv.Organization, "on", inv.ComputationID,
		"expired")

	comp, err := s.store.Computation(inv.ComputationID)
	if err != nil {
		return err
	}
	_, err = s.resolveInvitationRound(comp, true)
	return err
}
