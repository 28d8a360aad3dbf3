package syncer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/example/factbot/internal/database"
	"github.com/example/factbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMerger(t *testing.T) (*Merger, *database.Store) {
	t.Helper()
	store, err := database.Open(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store), store
}

func remoteFact(id int, title string) models.Fact {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.Fact{
		ID: id, Title: title, Body: "body", Language: "en",
		CreatedAt: created, UpdatedAt: created,
	}
}

func TestMerge_RepeatedBatchesAreIdempotent(t *testing.T) {
	merger, store := newTestMerger(t)

	batch := []models.Fact{remoteFact(1, "One"), remoteFact(2, "Two")}
	require.NoError(t, merger.Merge(batch, nil, nil))
	require.NoError(t, merger.Merge(batch, nil, nil))

	// Overlapping partial batch.
	require.NoError(t, merger.Merge(batch[1:], nil, nil))

	count, err := database.NewFactRepository(store).CountFacts()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMerge_NeverTouchesScheduleState(t *testing.T) {
	merger, store := newTestMerger(t)
	repo := database.NewFactRepository(store)

	require.NoError(t, merger.Merge([]models.Fact{remoteFact(1, "One")}, nil, nil))

	slot := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	fact, err := repo.ClaimForSlot(slot, "")
	require.NoError(t, err)
	require.NoError(t, repo.SetScheduleRef(fact.ID, "os-7"))
	require.NoError(t, repo.MarkShown(fact.ID))

	require.NoError(t, merger.Merge([]models.Fact{remoteFact(1, "One, revised")}, nil, nil))

	got, err := repo.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, "One, revised", got.Title)
	require.True(t, got.ScheduledAt.Valid)
	assert.True(t, got.ScheduledAt.Time.Equal(slot))
	assert.Equal(t, "os-7", got.ScheduleRef.String)
	assert.True(t, got.ShownInFeed)
}

func TestMerge_RejectsRowsWithoutIDs(t *testing.T) {
	merger, _ := newTestMerger(t)

	err := merger.Merge([]models.Fact{{Title: "No id"}}, nil, nil)
	assert.Error(t, err)

	err = merger.Merge(nil, nil, []models.QuestionWithOptions{{
		Question: models.Question{Prompt: "No ids"},
	}})
	assert.Error(t, err)
}
