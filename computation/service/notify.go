package service

import (
	"go.dedis.ch/onet/v3/log"

	"github.com/medcollab/securestats/computation"
)

// EventType names the notifications pushed to participants.
type EventType string

const (
	// StatusChanged fires on every lifecycle transition.
	StatusChanged EventType = "status_changed"
	// DataSubmitted fires when an organization's submission is stored.
	DataSubmitted EventType = "data_submitted"
	// ComputationCompleted fires when a result or error is final.
	ComputationCompleted EventType = "computation_completed"
	// ParticipantJoined fires when an organization joins.
	ParticipantJoined EventType = "participant_joined"
	// InvitationExpiring fires once when a pending invitation nears the
	// end of its retention window.
	InvitationExpiring EventType = "invitation_expiring_soon"
)

// Event is the payload handed to the notification port.
type Event struct {
	Type          EventType
	ComputationID string
	Organization  string
	Status        computation.Status
	Message       string
}

// Notifier is the outbound notification port. Delivery is best-effort:
// the orchestrator logs failures and moves on, and no state transition
// ever depends on a notification arriving.
type Notifier interface {
	Notify(e Event) error
}

// LogNotifier writes events to the log and is the default when no
// transport is wired in.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(e Event) error {
	log.Lvl3("notification:", e.Type, "computation", e.ComputationID,
		"org", e.Organization, "status", e.Status)
	return nil
}
