package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/factbot/internal/syncer"
	"github.com/example/factbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines how fact rows are laid out in the source file
type ImportConfig struct {
	FilePath       string // Path to the Excel or CSV file
	IDColumn       string // Column with the stable fact id
	TitleColumn    string // Column with the title
	BodyColumn     string // Column with the body text
	SummaryColumn  string // Column with the short summary
	CategoryColumn string // Column with the category slug
	SourceColumn   string // Column with the source attribution
	LanguageColumn string // Column with the language code
	SheetName      string // Name of the sheet to import
	StartRow       int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IDColumn:       "A",
		TitleColumn:    "B",
		BodyColumn:     "C",
		SummaryColumn:  "D",
		CategoryColumn: "E",
		SourceColumn:   "F",
		LanguageColumn: "G",
		SheetName:      "Sheet1",
		StartRow:       2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
}

// Importer seeds the local store with facts from a spreadsheet, feeding them
// through the same merge path the remote sync uses so local schedule state
// is preserved on re-imports.
type Importer struct {
	merger *syncer.Merger
}

// New creates an importer writing through the given merger
func New(merger *syncer.Merger) *Importer {
	return &Importer{merger: merger}
}

// ImportFacts imports facts from an Excel or CSV file
func (im *Importer) ImportFacts(config ImportConfig) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return im.importFromCSV(config)
	}
	return im.importFromExcel(config)
}

func (im *Importer) importFromExcel(config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %v", config.SheetName, err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	var facts []models.Fact

	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow {
			continue
		}
		result.TotalProcessed++

		get := func(col string) string {
			idx := columnIndex(col)
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		fact, err := buildFact(
			get(config.IDColumn), get(config.TitleColumn), get(config.BodyColumn),
			get(config.SummaryColumn), get(config.CategoryColumn),
			get(config.SourceColumn), get(config.LanguageColumn),
		)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		facts = append(facts, *fact)
	}

	if err := im.mergeFacts(facts, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (im *Importer) importFromCSV(config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	result := &ImportResult{Errors: make([]string, 0)}
	var facts []models.Fact

	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %v", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		result.TotalProcessed++

		get := func(col string) string {
			idx := columnIndex(col)
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		fact, err := buildFact(
			get(config.IDColumn), get(config.TitleColumn), get(config.BodyColumn),
			get(config.SummaryColumn), get(config.CategoryColumn),
			get(config.SourceColumn), get(config.LanguageColumn),
		)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		facts = append(facts, *fact)
	}

	if err := im.mergeFacts(facts, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (im *Importer) mergeFacts(facts []models.Fact, result *ImportResult) error {
	if len(facts) == 0 {
		return nil
	}
	if err := im.merger.Merge(facts, nil, nil); err != nil {
		return err
	}
	result.Imported = len(facts)
	return nil
}

func buildFact(id, title, body, summary, category, source, language string) (*models.Fact, error) {
	if id == "" || title == "" || body == "" {
		return nil, fmt.Errorf("missing id, title or body")
	}
	factID, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("invalid fact id %q", id)
	}
	if language == "" {
		language = "en"
	}

	now := time.Now()
	return &models.Fact{
		ID:           factID,
		Title:        title,
		Body:         body,
		Summary:      summary,
		CategorySlug: category,
		Source:       source,
		Language:     language,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// columnIndex converts a spreadsheet column letter ("A", "B", ... "AA") to a
// zero-based index.
func columnIndex(col string) int {
	col = strings.ToUpper(strings.TrimSpace(col))
	if col == "" {
		return -1
	}
	idx := 0
	for _, c := range col {
		if c < 'A' || c > 'Z' {
			return -1
		}
		idx = idx*26 + int(c-'A') + 1
	}
	return idx - 1
}
