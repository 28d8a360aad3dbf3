package database

import (
	"database/sql"
	"fmt"

	"github.com/example/factbot/pkg/models"
)

// QuestionRepository handles database operations for quiz questions
type QuestionRepository struct {
	store *Store
}

// NewQuestionRepository creates a new repository instance
func NewQuestionRepository(store *Store) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// GetByID returns a question with its options
func (r *QuestionRepository) GetByID(id int) (*models.QuestionWithOptions, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var question models.Question
	err = db.Get(&question, "SELECT * FROM questions WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question by ID: %v", err)
	}

	options, err := r.optionsFor(id)
	if err != nil {
		return nil, err
	}
	return &models.QuestionWithOptions{Question: question, Options: options}, nil
}

// GetByFact returns all questions attached to a fact
func (r *QuestionRepository) GetByFact(factID int) ([]models.QuestionWithOptions, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	err = db.Select(&questions, "SELECT * FROM questions WHERE fact_id = ? ORDER BY id", factID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions by fact: %v", err)
	}

	result := make([]models.QuestionWithOptions, 0, len(questions))
	for _, q := range questions {
		options, err := r.optionsFor(q.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.QuestionWithOptions{Question: q, Options: options})
	}
	return result, nil
}

// Exists reports whether the question is still present in the cache.
// Attempts referencing missing questions are legal; callers use this to
// skip orphans in aggregates.
func (r *QuestionRepository) Exists(id int) (bool, error) {
	db, err := r.store.handle()
	if err != nil {
		return false, err
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM questions WHERE id = ?", id); err != nil {
		return false, fmt.Errorf("failed to check question: %v", err)
	}
	return count > 0, nil
}

func (r *QuestionRepository) optionsFor(questionID int) ([]string, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var options []string
	err = db.Select(&options,
		"SELECT text FROM question_options WHERE question_id = ? ORDER BY position", questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get question options: %v", err)
	}
	return options, nil
}
