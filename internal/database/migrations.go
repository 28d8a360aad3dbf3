package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema version tracking:
// 1 - initial schema
// 2 - session_ref on question_attempts, language index on facts
const currentSchemaVersion = 2

var migrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			icon TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS facts (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			category_slug TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT 'en',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fact_schedule (
			fact_id INTEGER PRIMARY KEY,
			scheduled_at TIMESTAMP,
			schedule_ref TEXT,
			shown_in_feed BOOLEAN NOT NULL DEFAULT 0,
			FOREIGN KEY (fact_id) REFERENCES facts(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_schedule_scheduled_at ON fact_schedule(scheduled_at)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY,
			fact_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			prompt TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			difficulty INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY (fact_id) REFERENCES facts(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_fact_id ON questions(fact_id)`,
		`CREATE TABLE IF NOT EXISTS question_options (
			question_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (question_id, position),
			FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
		)`,
		// No foreign key on question_id: attempts outlive their questions.
		`CREATE TABLE IF NOT EXISTS question_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question_id INTEGER NOT NULL,
			correct BOOLEAN NOT NULL,
			answered_at TIMESTAMP NOT NULL,
			mode TEXT NOT NULL DEFAULT 'daily'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_question_id ON question_attempts(question_id)`,
		`CREATE TABLE IF NOT EXISTS daily_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			day TEXT NOT NULL UNIQUE,
			total_questions INTEGER NOT NULL DEFAULT 0,
			correct_answers INTEGER NOT NULL DEFAULT 0,
			completed_at TIMESTAMP
		)`,
	},
	2: {
		`ALTER TABLE question_attempts ADD COLUMN session_ref TEXT`,
		`CREATE INDEX IF NOT EXISTS idx_facts_language ON facts(language)`,
	},
}

// migrate brings the schema to currentSchemaVersion. Each migration checks
// and bumps the version counter inside its own transaction, so a crash
// between versions leaves a consistent prefix and a rerun picks up where it
// stopped.
func migrate(db *sqlx.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %v", err)
	}

	var version int
	err = db.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err != nil {
		return fmt.Errorf("failed to read schema version: %v", err)
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %v", v, err)
		}

		// Re-check inside the transaction so two racing opens cannot both
		// apply the same migration.
		var cur int
		if err := tx.Get(&cur, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to re-check schema version: %v", err)
		}
		if cur >= v {
			tx.Rollback()
			continue
		}

		for _, stmt := range migrations[v] {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d failed: %v", v, err)
			}
		}

		if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to clear schema version: %v", err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to bump schema version: %v", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %v", v, err)
		}
	}

	return nil
}

// SchemaVersion returns the applied schema version, for diagnostics.
func (s *Store) SchemaVersion() (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var version int
	if err := db.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %v", err)
	}
	return version, nil
}
