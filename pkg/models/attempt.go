package models

import (
	"database/sql"
	"time"
)

// QuestionAttempt is one append-only log entry for an answered question.
// Attempts are never updated or deleted, even when the owning question is
// removed by a later sync.
type QuestionAttempt struct {
	ID         int            `json:"id" db:"id"`
	QuestionID int            `json:"question_id" db:"question_id"`
	Correct    bool           `json:"correct" db:"correct"`
	AnsweredAt time.Time      `json:"answered_at" db:"answered_at"`
	Mode       string         `json:"mode" db:"mode"` // e.g. "daily", "practice"
	SessionRef sql.NullString `json:"session_ref" db:"session_ref"`
}
