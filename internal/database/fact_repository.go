package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/factbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a lookup targets a row that does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoCandidates is returned by ClaimForSlot when every fact is either
// already scheduled or already shown. Scheduling stops there; it is a
// reported condition, not a failure.
var ErrNoCandidates = errors.New("no schedulable facts left")

const scheduledFactColumns = `
	f.id, f.title, f.body, f.summary, f.category_slug, f.source,
	f.image_url, f.language, f.created_at, f.updated_at,
	s.scheduled_at, s.schedule_ref, s.shown_in_feed
`

// FactRepository handles database operations for facts and their local
// schedule state.
type FactRepository struct {
	store *Store
}

// NewFactRepository creates a new repository instance
func NewFactRepository(store *Store) *FactRepository {
	return &FactRepository{store: store}
}

// GetByID returns a fact with its schedule state
func (r *FactRepository) GetByID(id int) (*models.ScheduledFact, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var fact models.ScheduledFact
	query := `SELECT ` + scheduledFactColumns + `
		FROM facts f JOIN fact_schedule s ON s.fact_id = f.id
		WHERE f.id = ?`
	err = db.Get(&fact, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fact by ID: %v", err)
	}
	return &fact, nil
}

// GetByCategory returns facts in a category, newest first
func (r *FactRepository) GetByCategory(slug, lang string) ([]models.ScheduledFact, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + scheduledFactColumns + `
		FROM facts f JOIN fact_schedule s ON s.fact_id = f.id
		WHERE f.category_slug = ?`
	args := []interface{}{slug}
	if lang != "" {
		query += " AND f.language = ?"
		args = append(args, lang)
	}
	query += " ORDER BY f.created_at DESC"

	var facts []models.ScheduledFact
	if err := db.Select(&facts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get facts by category: %v", err)
	}
	return facts, nil
}

// Search finds facts whose title, body or summary contains the query.
// Title matches rank above body/summary matches; ties break by recency.
func (r *FactRepository) Search(query, lang string) ([]models.ScheduledFact, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	pattern := "%" + query + "%"
	sqlQuery := `SELECT ` + scheduledFactColumns + `
		FROM facts f JOIN fact_schedule s ON s.fact_id = f.id
		WHERE (f.title LIKE ? OR f.body LIKE ? OR f.summary LIKE ?)`
	args := []interface{}{pattern, pattern, pattern}
	if lang != "" {
		sqlQuery += " AND f.language = ?"
		args = append(args, lang)
	}
	sqlQuery += `
		ORDER BY CASE WHEN f.title LIKE ? THEN 0 ELSE 1 END, f.created_at DESC`
	args = append(args, pattern)

	var facts []models.ScheduledFact
	if err := db.Select(&facts, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to search facts: %v", err)
	}
	return facts, nil
}

// ClaimForSlot picks one unscheduled, not-shown fact uniformly at random and
// marks it scheduled for the given time, all inside one transaction. Times
// are bound in UTC so text comparisons in the database stay correct. Two
// concurrent scheduling passes can never claim the same fact: the update
// only succeeds while the row is still unscheduled.
func (r *FactRepository) ClaimForSlot(at time.Time, lang string) (*models.ScheduledFact, error) {
	var claimed *models.ScheduledFact

	err := r.store.withTx(func(tx *sqlx.Tx) error {
		// A claim can lose the race to a concurrent pass; re-draw a few
		// times before giving up.
		for attempt := 0; attempt < 5; attempt++ {
			query := `SELECT f.id
				FROM facts f JOIN fact_schedule s ON s.fact_id = f.id
				WHERE s.scheduled_at IS NULL AND s.shown_in_feed = 0`
			args := []interface{}{}
			if lang != "" {
				query += " AND f.language = ?"
				args = append(args, lang)
			}
			query += " ORDER BY RANDOM() LIMIT 1"

			var id int
			err := tx.Get(&id, query, args...)
			if err == sql.ErrNoRows {
				return ErrNoCandidates
			}
			if err != nil {
				return fmt.Errorf("failed to pick candidate: %v", err)
			}

			res, err := tx.Exec(`UPDATE fact_schedule
				SET scheduled_at = ?, schedule_ref = NULL
				WHERE fact_id = ? AND scheduled_at IS NULL AND shown_in_feed = 0`, at.UTC(), id)
			if err != nil {
				return fmt.Errorf("failed to claim fact %d: %v", id, err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %v", err)
			}
			if rows == 0 {
				continue // lost the race, draw again
			}

			var fact models.ScheduledFact
			sel := `SELECT ` + scheduledFactColumns + `
				FROM facts f JOIN fact_schedule s ON s.fact_id = f.id
				WHERE f.id = ?`
			if err := tx.Get(&fact, sel, id); err != nil {
				return fmt.Errorf("failed to load claimed fact: %v", err)
			}
			claimed = &fact
			return nil
		}
		return ErrNoCandidates
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// SetScheduleRef records the external identifier the notification
// collaborator returned for an already-claimed slot. An empty ref stores
// NULL, meaning the registration is still pending OS confirmation.
func (r *FactRepository) SetScheduleRef(factID int, ref string) error {
	db, err := r.store.handle()
	if err != nil {
		return err
	}

	var value interface{}
	if ref != "" {
		value = ref
	}
	_, err = db.Exec("UPDATE fact_schedule SET schedule_ref = ? WHERE fact_id = ?", value, factID)
	if err != nil {
		return fmt.Errorf("failed to set schedule ref: %v", err)
	}
	return nil
}

// MarkShown flags a fact as delivered to the feed. Shown facts never leave
// the feed and are never reclaimed by schedule clearing.
func (r *FactRepository) MarkShown(factID int) error {
	db, err := r.store.handle()
	if err != nil {
		return err
	}

	_, err = db.Exec("UPDATE fact_schedule SET shown_in_feed = 1 WHERE fact_id = ?", factID)
	if err != nil {
		return fmt.Errorf("failed to mark fact shown: %v", err)
	}
	return nil
}

// Unschedule clears schedule state for the given facts, returning how many
// rows changed. Facts already shown in the feed are left untouched.
func (r *FactRepository) Unschedule(factIDs []int) (int, error) {
	if len(factIDs) == 0 {
		return 0, nil
	}

	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	query, args, err := sqlx.In(`UPDATE fact_schedule
		SET scheduled_at = NULL, schedule_ref = NULL
		WHERE fact_id IN (?) AND shown_in_feed = 0`, factIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to build unschedule query: %v", err)
	}

	res, err := db.Exec(db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to unschedule facts: %v", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %v", err)
	}
	return int(rows), nil
}

// UnscheduleAllNotShown clears schedule state for every fact that has not
// been shown in the feed, past or future. Used before a full rebuild.
func (r *FactRepository) UnscheduleAllNotShown() (int, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	res, err := db.Exec(`UPDATE fact_schedule
		SET scheduled_at = NULL, schedule_ref = NULL
		WHERE shown_in_feed = 0 AND scheduled_at IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear schedule: %v", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %v", err)
	}
	return int(rows), nil
}

// FutureScheduled returns facts with a slot time after now that have not
// been shown yet, ordered by slot time.
func (r *FactRepository) FutureScheduled(now time.Time) ([]models.ScheduledFact, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var facts []models.ScheduledFact
	query := `SELECT ` + scheduledFactColumns + `
		FROM facts f JOIN fact_schedule s ON s.fact_id = f.id
		WHERE s.scheduled_at IS NOT NULL AND s.scheduled_at > ? AND s.shown_in_feed = 0
		ORDER BY s.scheduled_at ASC`
	if err := db.Select(&facts, query, now.UTC()); err != nil {
		return nil, fmt.Errorf("failed to get future schedule: %v", err)
	}
	return facts, nil
}

// CountPendingScheduled returns the number of future, not-yet-shown slots,
// i.e. how much of the notification capacity is in use.
func (r *FactRepository) CountPendingScheduled(now time.Time) (int, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	var count int
	err = db.Get(&count, `SELECT COUNT(*) FROM fact_schedule
		WHERE scheduled_at IS NOT NULL AND scheduled_at > ? AND shown_in_feed = 0`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to count pending slots: %v", err)
	}
	return count, nil
}

// ScheduledBetween returns facts whose slot time falls in [start, end),
// regardless of whether they were shown already, ordered by slot time.
func (r *FactRepository) ScheduledBetween(start, end time.Time, lang string) ([]models.ScheduledFact, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + scheduledFactColumns + `
		FROM facts f JOIN fact_schedule s ON s.fact_id = f.id
		WHERE s.scheduled_at >= ? AND s.scheduled_at < ?`
	args := []interface{}{start.UTC(), end.UTC()}
	if lang != "" {
		query += " AND f.language = ?"
		args = append(args, lang)
	}
	query += " ORDER BY s.scheduled_at ASC"

	var facts []models.ScheduledFact
	if err := db.Select(&facts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get scheduled facts: %v", err)
	}
	return facts, nil
}

// DeliveredSince returns facts already delivered (shown in feed, or with a
// slot time in the past) within the trailing window, newest first. Ordering
// falls back to created_at when a shown fact was never scheduled.
func (r *FactRepository) DeliveredSince(cutoff, now time.Time, lang string) ([]models.ScheduledFact, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + scheduledFactColumns + `
		FROM facts f JOIN fact_schedule s ON s.fact_id = f.id
		WHERE (s.shown_in_feed = 1 OR (s.scheduled_at IS NOT NULL AND s.scheduled_at <= ?))
		  AND COALESCE(s.scheduled_at, f.created_at) >= ?`
	args := []interface{}{now.UTC(), cutoff.UTC()}
	if lang != "" {
		query += " AND f.language = ?"
		args = append(args, lang)
	}
	query += " ORDER BY COALESCE(s.scheduled_at, f.created_at) DESC"

	var facts []models.ScheduledFact
	if err := db.Select(&facts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get delivered facts: %v", err)
	}
	return facts, nil
}

// RandomUnseen returns one random fact that has not been shown in the feed.
func (r *FactRepository) RandomUnseen(lang string) (*models.ScheduledFact, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + scheduledFactColumns + `
		FROM facts f JOIN fact_schedule s ON s.fact_id = f.id
		WHERE s.shown_in_feed = 0`
	args := []interface{}{}
	if lang != "" {
		query += " AND f.language = ?"
		args = append(args, lang)
	}
	query += " ORDER BY RANDOM() LIMIT 1"

	var fact models.ScheduledFact
	err = db.Get(&fact, query, args...)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get random fact: %v", err)
	}
	return &fact, nil
}

// CountFacts returns the total number of cached facts.
func (r *FactRepository) CountFacts() (int, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM facts"); err != nil {
		return 0, fmt.Errorf("failed to count facts: %v", err)
	}
	return count, nil
}
