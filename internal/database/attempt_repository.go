package database

import (
	"fmt"
	"time"

	"github.com/example/factbot/pkg/models"
)

// AttemptRepository handles database operations for the append-only quiz
// attempt log.
type AttemptRepository struct {
	store *Store
}

// NewAttemptRepository creates a new repository instance
func NewAttemptRepository(store *Store) *AttemptRepository {
	return &AttemptRepository{store: store}
}

// Create appends one attempt to the log
func (r *AttemptRepository) Create(attempt *models.QuestionAttempt) error {
	db, err := r.store.handle()
	if err != nil {
		return err
	}

	if attempt.AnsweredAt.IsZero() {
		attempt.AnsweredAt = time.Now()
	}

	res, err := db.Exec(`
		INSERT INTO question_attempts (question_id, correct, answered_at, mode, session_ref)
		VALUES (?, ?, ?, ?, ?)`,
		attempt.QuestionID, attempt.Correct, attempt.AnsweredAt.UTC(), attempt.Mode, attempt.SessionRef,
	)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %v", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %v", err)
	}
	attempt.ID = int(id)
	return nil
}

// LastN returns the n most recent attempts for a question, newest first.
func (r *AttemptRepository) LastN(questionID, n int) ([]models.QuestionAttempt, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var attempts []models.QuestionAttempt
	err = db.Select(&attempts, `
		SELECT * FROM question_attempts
		WHERE question_id = ?
		ORDER BY answered_at DESC, id DESC
		LIMIT ?`, questionID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %v", err)
	}
	return attempts, nil
}

// CountByQuestion returns total and correct attempt counts for a question.
func (r *AttemptRepository) CountByQuestion(questionID int) (total, correct int, err error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, 0, err
	}

	row := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(correct), 0)
		FROM question_attempts WHERE question_id = ?`, questionID)
	if err := row.Scan(&total, &correct); err != nil {
		return 0, 0, fmt.Errorf("failed to count attempts: %v", err)
	}
	return total, correct, nil
}

// Accuracy returns overall attempt counts restricted to questions that still
// exist. The inner join drops orphaned attempts — a question deleted by a
// later sync must not skew the aggregate.
func (r *AttemptRepository) Accuracy() (total, correct int, err error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, 0, err
	}

	row := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(a.correct), 0)
		FROM question_attempts a
		JOIN questions q ON q.id = a.question_id`)
	if err := row.Scan(&total, &correct); err != nil {
		return 0, 0, fmt.Errorf("failed to compute accuracy: %v", err)
	}
	return total, correct, nil
}

// AccuracyByCategory returns per-category attempt counts, skipping orphaned
// attempts the same way Accuracy does.
func (r *AttemptRepository) AccuracyByCategory() (map[string][2]int, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT f.category_slug, COUNT(*), COALESCE(SUM(a.correct), 0)
		FROM question_attempts a
		JOIN questions q ON q.id = a.question_id
		JOIN facts f ON f.id = q.fact_id
		GROUP BY f.category_slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute category accuracy: %v", err)
	}
	defer rows.Close()

	result := make(map[string][2]int)
	for rows.Next() {
		var slug string
		var total, correct int
		if err := rows.Scan(&slug, &total, &correct); err != nil {
			return nil, fmt.Errorf("failed to scan category accuracy: %v", err)
		}
		result[slug] = [2]int{total, correct}
	}
	return result, rows.Err()
}
