package models

import "database/sql"

// DailyProgress tracks quiz activity for one calendar date. The day is the
// local date in YYYY-MM-DD form; a non-null CompletedAt makes the day count
// toward the user's streak.
type DailyProgress struct {
	ID             int          `json:"id" db:"id"`
	Day            string       `json:"day" db:"day"`
	TotalQuestions int          `json:"total_questions" db:"total_questions"`
	CorrectAnswers int          `json:"correct_answers" db:"correct_answers"`
	CompletedAt    sql.NullTime `json:"completed_at" db:"completed_at"`
}
