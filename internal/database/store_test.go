package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/example/factbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testFact(id int) models.Fact {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute)
	return models.Fact{
		ID:           id,
		Title:        fmt.Sprintf("Fact %d", id),
		Body:         fmt.Sprintf("Body of fact %d", id),
		Summary:      fmt.Sprintf("Summary %d", id),
		CategorySlug: "science",
		Source:       "test",
		Language:     "en",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func seedFacts(t *testing.T, store *Store, n int) {
	t.Helper()
	facts := make([]models.Fact, 0, n)
	for i := 1; i <= n; i++ {
		facts = append(facts, testFact(i))
	}
	require.NoError(t, store.UpsertContent(facts, nil, nil))
}

func TestOpen_CreatesSchema(t *testing.T) {
	store := newTestStore(t)

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Idempotent(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Open())
	}
}

func TestOpen_Concurrent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "facts.db"))
	defer store.Close()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Open()
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "goroutine %d", i)
	}

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_RetryAfterFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	// Parent of the database path is a regular file, so the first open fails.
	store := NewStore(filepath.Join(blocker, "facts.db"))
	require.Error(t, store.Open())

	// The failed open must not poison the store.
	require.NoError(t, os.Remove(blocker))
	require.NoError(t, store.Open())
	defer store.Close()

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.db")
	store, err := Open(path)
	require.NoError(t, err)
	seedFacts(t, store, 3)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := NewFactRepository(reopened).CountFacts()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	version, err := reopened.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}
