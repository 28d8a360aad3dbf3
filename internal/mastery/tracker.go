package mastery

import (
	"database/sql"
	"time"

	"github.com/example/factbot/internal/database"
	"github.com/example/factbot/pkg/models"
)

// masteryWindow is how many trailing attempts must all be correct for a
// question to count as mastered.
const masteryWindow = 3

// Tracker records quiz attempts and derives mastery and streak statistics
// from the append-only attempt log and the daily progress table.
type Tracker struct {
	attempts *database.AttemptRepository
	progress *database.ProgressRepository
	loc      *time.Location
	now      func() time.Time
}

// New creates a tracker writing through the given repositories.
func New(attempts *database.AttemptRepository, progress *database.ProgressRepository, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		attempts: attempts,
		progress: progress,
		loc:      loc,
		now:      time.Now,
	}
}

// RecordAttempt appends one attempt to the log and folds it into today's
// progress counters. Attempts are never updated or deleted afterwards.
func (t *Tracker) RecordAttempt(questionID int, correct bool, mode, sessionRef string) error {
	now := t.now()
	attempt := &models.QuestionAttempt{
		QuestionID: questionID,
		Correct:    correct,
		AnsweredAt: now,
		Mode:       mode,
	}
	if sessionRef != "" {
		attempt.SessionRef = sql.NullString{String: sessionRef, Valid: true}
	}
	if err := t.attempts.Create(attempt); err != nil {
		return err
	}

	day := now.In(t.loc).Format("2006-01-02")
	return t.progress.RecordAnswer(day, correct)
}

// CompleteToday stamps today's progress row as completed, making the day
// count toward streaks.
func (t *Tracker) CompleteToday() error {
	now := t.now()
	day := now.In(t.loc).Format("2006-01-02")
	return t.progress.MarkCompleted(day, now)
}

// IsMastered reports whether the question's three most recent attempts exist
// and are all correct. Fewer than three attempts is never mastery.
func (t *Tracker) IsMastered(questionID int) (bool, error) {
	attempts, err := t.attempts.LastN(questionID, masteryWindow)
	if err != nil {
		return false, err
	}
	if len(attempts) < masteryWindow {
		return false, nil
	}
	for _, a := range attempts {
		if !a.Correct {
			return false, nil
		}
	}
	return true, nil
}

// DailyStreak returns the length of the current streak: the run of
// consecutive completed days ending at today or yesterday. If neither today
// nor yesterday is completed the streak is zero.
func (t *Tracker) DailyStreak() (int, error) {
	days, err := t.progress.CompletedDays()
	if err != nil {
		return 0, err
	}
	if len(days) == 0 {
		return 0, nil
	}

	completed := make(map[string]bool, len(days))
	for _, d := range days {
		completed[d] = true
	}

	now := t.now().In(t.loc)
	anchor := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, t.loc)
	if !completed[anchor.Format("2006-01-02")] {
		anchor = anchor.AddDate(0, 0, -1)
		if !completed[anchor.Format("2006-01-02")] {
			return 0, nil
		}
	}

	streak := 0
	for d := anchor; completed[d.Format("2006-01-02")]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak, nil
}

// BestStreak returns the longest run of consecutive completed days anywhere
// in the history.
func (t *Tracker) BestStreak() (int, error) {
	days, err := t.progress.CompletedDays()
	if err != nil {
		return 0, err
	}
	if len(days) == 0 {
		return 0, nil
	}

	// CompletedDays is newest first; walk oldest to newest. Consecutiveness
	// uses calendar arithmetic, not 24h deltas, so DST days chain correctly.
	best, run := 0, 0
	var prev time.Time
	for i := len(days) - 1; i >= 0; i-- {
		d, err := time.ParseInLocation("2006-01-02", days[i], t.loc)
		if err != nil {
			return 0, err
		}
		if run > 0 && d.Equal(prev.AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
		prev = d
	}
	return best, nil
}

// Accuracy returns overall answered/correct counts, excluding attempts whose
// question no longer exists.
func (t *Tracker) Accuracy() (total, correct int, err error) {
	return t.attempts.Accuracy()
}
