package content

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/recoverybot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines how glossary rows are read from an Excel or CSV file.
type ImportConfig struct {
	FilePath         string // Path to the Excel or CSV file
	IDColumn         string // Column with the term id (optional, derived when empty)
	TermColumn       string // Column with the term
	DefinitionColumn string // Column with the definition
	VideoColumn      string // Column with an optional video URL
	SheetName        string // Name of the sheet to import
	StartRow         int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IDColumn:         "A",
		TermColumn:       "B",
		DefinitionColumn: "C",
		VideoColumn:      "D",
		SheetName:        "Sheet1",
		StartRow:         2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Errors         []string
}

// ImportGlossary reads glossary terms from an Excel or CSV file.
func ImportGlossary(config ImportConfig) ([]models.Term, *ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return importFromCSV(config)
	}
	return importFromExcel(config)
}

func importFromExcel(config ImportConfig) ([]models.Term, *ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rows: %v", err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	var terms []models.Term

	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		result.TotalProcessed++

		var id, term, definition, video string
		if colIdx := columnToIndex(config.IDColumn); colIdx >= 0 && colIdx < len(row) {
			id = row[colIdx]
		}
		if colIdx := columnToIndex(config.TermColumn); colIdx >= 0 && colIdx < len(row) {
			term = row[colIdx]
		}
		if colIdx := columnToIndex(config.DefinitionColumn); colIdx >= 0 && colIdx < len(row) {
			definition = row[colIdx]
		}
		if config.VideoColumn != "" {
			if colIdx := columnToIndex(config.VideoColumn); colIdx >= 0 && colIdx < len(row) {
				video = row[colIdx]
			}
		}

		t, err := buildTerm(id, term, definition, video)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		terms = append(terms, t)
		result.Imported++
	}

	return terms, result, nil
}

func importFromCSV(config ImportConfig) ([]models.Term, *ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{Errors: make([]string, 0)}
	var terms []models.Term
	rowNum := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading CSV: %v", err)
		}

		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		result.TotalProcessed++

		var id, term, definition, video string
		if len(row) > 0 {
			id = row[0]
		}
		if len(row) > 1 {
			term = row[1]
		}
		if len(row) > 2 {
			definition = row[2]
		}
		if len(row) > 3 {
			video = row[3]
		}

		t, err := buildTerm(id, term, definition, video)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		terms = append(terms, t)
		result.Imported++
	}

	return terms, result, nil
}

func buildTerm(id, term, definition, video string) (models.Term, error) {
	term = strings.TrimSpace(term)
	definition = strings.TrimSpace(definition)
	id = strings.TrimSpace(id)

	if term == "" {
		return models.Term{}, fmt.Errorf("term cannot be empty")
	}
	if definition == "" {
		return models.Term{}, fmt.Errorf("definition cannot be empty")
	}
	if id == "" {
		id = slugify(term)
	}

	return models.Term{
		ID:         id,
		Term:       term,
		Definition: definition,
		VideoURL:   strings.TrimSpace(video),
	}, nil
}

// slugify derives a stable id from a term name.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r >= 'а' && r <= 'я', r == 'ё':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// WriteModule saves a payload as <dir>/<name>.json so the FileSource picks
// it up on the next load.
func WriteModule(dir, name string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode module %q: %v", name, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create content directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write module %q: %v", name, err)
	}
	return nil
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	if column == "" {
		return -1
	}
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
