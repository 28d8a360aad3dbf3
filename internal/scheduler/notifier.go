package scheduler

import "time"

// Payload is the content handed to the notification collaborator for one
// delivery.
type Payload struct {
	FactID  int
	Title   string
	Summary string
}

// Notifier is the OS notification collaborator. Schedule registers a
// delivery at a local wall-clock time and returns an opaque identifier;
// an empty identifier means the registration is pending confirmation, not
// that it failed. ListPending reports the identifiers the OS still holds.
type Notifier interface {
	Schedule(payload Payload, at time.Time) (string, error)
	Cancel(ref string) error
	CancelAll() error
	ListPending() ([]string, error)
}
