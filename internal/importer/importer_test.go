package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/factbot/internal/database"
	"github.com/example/factbot/internal/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImporter(t *testing.T) (*Importer, *database.Store) {
	t.Helper()
	store, err := database.Open(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(syncer.New(store)), store
}

func TestImportFacts_CSV(t *testing.T) {
	importer, store := newTestImporter(t)

	csvPath := filepath.Join(t.TempDir(), "facts.csv")
	content := "id,title,body,summary,category,source,language\n" +
		"1,Octopus hearts,An octopus has three hearts.,Three hearts,biology,Test Book,en\n" +
		"2,Honey keeps,Sealed honey never spoils.,Forever food,chemistry,Test Book,en\n" +
		",Missing id,No id row,,,,\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0644))

	config := DefaultImportConfig()
	config.FilePath = csvPath

	result, err := importer.ImportFacts(config)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)

	fact, err := database.NewFactRepository(store).GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Octopus hearts", fact.Title)
	assert.Equal(t, "biology", fact.CategorySlug)
}

func TestImportFacts_ReimportPreservesSchedule(t *testing.T) {
	importer, store := newTestImporter(t)
	repo := database.NewFactRepository(store)

	csvPath := filepath.Join(t.TempDir(), "facts.csv")
	content := "id,title,body,summary,category,source,language\n" +
		"1,Title,Body,,cat,src,en\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0644))

	config := DefaultImportConfig()
	config.FilePath = csvPath

	_, err := importer.ImportFacts(config)
	require.NoError(t, err)
	require.NoError(t, repo.MarkShown(1))

	_, err = importer.ImportFacts(config)
	require.NoError(t, err)

	fact, err := repo.GetByID(1)
	require.NoError(t, err)
	assert.True(t, fact.ShownInFeed, "re-import must not reset local state")
}

func TestColumnIndex(t *testing.T) {
	assert.Equal(t, 0, columnIndex("A"))
	assert.Equal(t, 6, columnIndex("G"))
	assert.Equal(t, 26, columnIndex("AA"))
	assert.Equal(t, -1, columnIndex(""))
	assert.Equal(t, -1, columnIndex("7"))
}
