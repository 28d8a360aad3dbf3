package syncer

import (
	"fmt"
	"log"

	"github.com/example/factbot/internal/database"
	"github.com/example/factbot/pkg/models"
)

// Merger folds remote content batches into the local store. Merging is a
// pure upsert: nothing is deleted, repeated or overlapping batches are
// harmless, and the locally-owned schedule state of every fact survives
// untouched.
type Merger struct {
	store *database.Store
}

// New creates a merger writing into store
func New(store *database.Store) *Merger {
	return &Merger{store: store}
}

// Merge applies one remote batch inside a single transaction. A failure
// partway leaves the store exactly as it was, so the caller can retry the
// whole batch.
func (m *Merger) Merge(facts []models.Fact, categories []models.Category, questions []models.QuestionWithOptions) error {
	for _, f := range facts {
		if f.ID == 0 {
			return fmt.Errorf("remote fact without id: %q", f.Title)
		}
	}
	for _, q := range questions {
		if q.ID == 0 || q.FactID == 0 {
			return fmt.Errorf("remote question without id or fact id: %q", q.Prompt)
		}
	}

	if err := m.store.UpsertContent(facts, categories, questions); err != nil {
		return fmt.Errorf("failed to merge remote batch: %v", err)
	}

	log.Printf("merged %d facts, %d categories, %d questions", len(facts), len(categories), len(questions))
	return nil
}
