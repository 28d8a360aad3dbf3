package database

import (
	"fmt"

	"github.com/example/factbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// UpsertContent applies one remote content batch in a single transaction.
// Facts and questions are pure upserts keyed by their remote ids; categories
// are replaced wholesale when present. The fact upsert writes remote-owned
// columns only — schedule state lives in fact_schedule, which this method
// never touches except to create a default row for facts seen for the first
// time. A failure anywhere rolls the whole batch back.
func (s *Store) UpsertContent(facts []models.Fact, categories []models.Category, questions []models.QuestionWithOptions) error {
	return s.withTx(func(tx *sqlx.Tx) error {
		if len(categories) > 0 {
			if err := replaceCategoriesTx(tx, categories); err != nil {
				return err
			}
		}
		for i := range facts {
			if err := upsertFactTx(tx, &facts[i]); err != nil {
				return err
			}
		}
		for i := range questions {
			if err := upsertQuestionTx(tx, &questions[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertFactTx(tx *sqlx.Tx, fact *models.Fact) error {
	_, err := tx.Exec(`
		INSERT INTO facts (id, title, body, summary, category_slug, source, image_url, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			summary = excluded.summary,
			category_slug = excluded.category_slug,
			source = excluded.source,
			image_url = excluded.image_url,
			language = excluded.language,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		fact.ID, fact.Title, fact.Body, fact.Summary, fact.CategorySlug,
		fact.Source, fact.ImageURL, fact.Language, fact.CreatedAt.UTC(), fact.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fact %d: %v", fact.ID, err)
	}

	// Existing schedule rows keep their state; only brand-new facts get one.
	_, err = tx.Exec("INSERT OR IGNORE INTO fact_schedule (fact_id) VALUES (?)", fact.ID)
	if err != nil {
		return fmt.Errorf("failed to create schedule row for fact %d: %v", fact.ID, err)
	}
	return nil
}

func replaceCategoriesTx(tx *sqlx.Tx, categories []models.Category) error {
	if _, err := tx.Exec("DELETE FROM categories"); err != nil {
		return fmt.Errorf("failed to clear categories: %v", err)
	}
	for _, c := range categories {
		_, err := tx.Exec(`INSERT INTO categories (id, name, slug, icon, color) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Slug, c.Icon, c.Color)
		if err != nil {
			return fmt.Errorf("failed to insert category %q: %v", c.Slug, err)
		}
	}
	return nil
}

func upsertQuestionTx(tx *sqlx.Tx, q *models.QuestionWithOptions) error {
	_, err := tx.Exec(`
		INSERT INTO questions (id, fact_id, type, prompt, correct_answer, explanation, difficulty)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fact_id = excluded.fact_id,
			type = excluded.type,
			prompt = excluded.prompt,
			correct_answer = excluded.correct_answer,
			explanation = excluded.explanation,
			difficulty = excluded.difficulty`,
		q.ID, q.FactID, q.Type, q.Prompt, q.CorrectAnswer, q.Explanation, q.Difficulty,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert question %d: %v", q.ID, err)
	}

	// Options are remote-owned and carry no local state, so wholesale
	// replacement keeps the upsert idempotent.
	if _, err := tx.Exec("DELETE FROM question_options WHERE question_id = ?", q.ID); err != nil {
		return fmt.Errorf("failed to clear options for question %d: %v", q.ID, err)
	}
	for i, text := range q.Options {
		_, err := tx.Exec("INSERT INTO question_options (question_id, position, text) VALUES (?, ?, ?)",
			q.ID, i, text)
		if err != nil {
			return fmt.Errorf("failed to insert option for question %d: %v", q.ID, err)
		}
	}
	return nil
}

// ResetContent clears the cached remote content: facts, their questions and
// categories. Quiz attempts and daily progress are local history and stay.
// Facts already shown in the feed stay as well — delivered history is
// immutable once shown.
func (s *Store) ResetContent() error {
	return s.withTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`DELETE FROM facts WHERE id NOT IN (
			SELECT fact_id FROM fact_schedule WHERE shown_in_feed = 1
		)`); err != nil {
			return fmt.Errorf("failed to clear facts: %v", err)
		}
		if _, err := tx.Exec("DELETE FROM categories"); err != nil {
			return fmt.Errorf("failed to clear categories: %v", err)
		}
		return nil
	})
}
