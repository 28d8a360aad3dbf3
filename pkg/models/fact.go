package models

import (
	"database/sql"
	"time"
)

// Fact represents a single piece of content delivered to the user.
// All fields are owned by the remote content API and overwritten on sync.
type Fact struct {
	ID           int       `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Body         string    `json:"body" db:"body"`
	Summary      string    `json:"summary" db:"summary"`
	CategorySlug string    `json:"category_slug" db:"category_slug"`
	Source       string    `json:"source" db:"source"`
	ImageURL     string    `json:"image_url" db:"image_url"`
	Language     string    `json:"language" db:"language"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduleState holds the locally-owned delivery state for a fact.
// It lives in its own table so remote syncs can never touch it.
type ScheduleState struct {
	FactID      int            `json:"fact_id" db:"fact_id"`
	ScheduledAt sql.NullTime   `json:"scheduled_at" db:"scheduled_at"`
	ScheduleRef sql.NullString `json:"schedule_ref" db:"schedule_ref"` // opaque id from the notification collaborator
	ShownInFeed bool           `json:"shown_in_feed" db:"shown_in_feed"`
}

// ScheduledFact is a fact joined with its local schedule state.
type ScheduledFact struct {
	Fact
	ScheduledAt sql.NullTime   `json:"scheduled_at" db:"scheduled_at"`
	ScheduleRef sql.NullString `json:"schedule_ref" db:"schedule_ref"`
	ShownInFeed bool           `json:"shown_in_feed" db:"shown_in_feed"`
}

// Delivered reports whether the fact has reached the user: either it was
// marked shown in the feed or its slot time is already in the past.
func (f *ScheduledFact) Delivered(now time.Time) bool {
	if f.ShownInFeed {
		return true
	}
	return f.ScheduledAt.Valid && f.ScheduledAt.Time.Before(now)
}
