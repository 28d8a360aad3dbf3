package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/example/factbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ProgressRepository handles database operations for daily progress rows
type ProgressRepository struct {
	store *Store
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(store *Store) *ProgressRepository {
	return &ProgressRepository{store: store}
}

// GetByDay returns the progress row for a local date (YYYY-MM-DD).
func (r *ProgressRepository) GetByDay(day string) (*models.DailyProgress, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var progress models.DailyProgress
	err = db.Get(&progress, "SELECT * FROM daily_progress WHERE day = ?", day)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily progress: %v", err)
	}
	return &progress, nil
}

// RecordAnswer folds one answered question into the day's counters,
// creating the row if the day has no progress yet.
func (r *ProgressRepository) RecordAnswer(day string, correct bool) error {
	return r.store.withTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("INSERT OR IGNORE INTO daily_progress (day) VALUES (?)", day); err != nil {
			return fmt.Errorf("failed to create progress row: %v", err)
		}

		correctDelta := 0
		if correct {
			correctDelta = 1
		}
		_, err := tx.Exec(`UPDATE daily_progress
			SET total_questions = total_questions + 1,
			    correct_answers = correct_answers + ?
			WHERE day = ?`, correctDelta, day)
		if err != nil {
			return fmt.Errorf("failed to update progress: %v", err)
		}
		return nil
	})
}

// MarkCompleted stamps the day as completed, making it count toward streaks.
// Already-completed days keep their original timestamp.
func (r *ProgressRepository) MarkCompleted(day string, at time.Time) error {
	return r.store.withTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("INSERT OR IGNORE INTO daily_progress (day) VALUES (?)", day); err != nil {
			return fmt.Errorf("failed to create progress row: %v", err)
		}
		_, err := tx.Exec(`UPDATE daily_progress SET completed_at = ?
			WHERE day = ? AND completed_at IS NULL`, at.UTC(), day)
		if err != nil {
			return fmt.Errorf("failed to mark day completed: %v", err)
		}
		return nil
	})
}

// CompletedDays returns every completed local date, newest first.
func (r *ProgressRepository) CompletedDays() ([]string, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var days []string
	err = db.Select(&days, `SELECT day FROM daily_progress
		WHERE completed_at IS NOT NULL ORDER BY day DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed days: %v", err)
	}
	return days, nil
}
