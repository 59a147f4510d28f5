// Package sheet reads import workbooks and writes the xlsx exports.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/karnan008/QA-Test-Manager/internal/models"
)

// ImportedBy is the creator recorded for rows coming from a workbook.
const ImportedBy = "Excel Import"

var (
	// RequiredColumns must all be present in the header row of an import.
	RequiredColumns = []string{"Test Case ID", "Title", "Module", "Precondition", "Steps", "Expected Result"}
	// OptionalColumns are read when present.
	OptionalColumns = []string{"Priority", "Status", "Tags"}
)

// ErrEmptyFile is returned for a workbook without any rows.
var ErrEmptyFile = errors.New("the Excel file is empty")

// MissingColumnsError lists the required headers absent from an import.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// Row is a parsed data row with its 1-based line in the worksheet.
type Row struct {
	Line   int
	Record models.ImportRecord
}

// ParseImport reads the first worksheet of an xlsx workbook. The first row
// holds the headers; blank rows are ignored. Priority and status are
// normalized when recognized and kept verbatim otherwise so Validate can
// report them.
func ParseImport(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(grid) == 0 {
		return nil, ErrEmptyFile
	}

	columns := make(map[string]int, len(grid[0]))
	for i, h := range grid[0] {
		h = strings.TrimSpace(h)
		if _, dup := columns[h]; !dup {
			columns[h] = i
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	rows := make([]Row, 0, len(grid)-1)
	for i, cells := range grid[1:] {
		if blank(cells) {
			continue
		}
		cell := func(header string) string {
			j, ok := columns[header]
			if !ok || j >= len(cells) {
				return ""
			}
			return cells[j]
		}
		rows = append(rows, Row{
			Line: i + 2,
			Record: models.ImportRecord{
				TestCaseID:     strings.TrimSpace(cell("Test Case ID")),
				Title:          strings.TrimSpace(cell("Title")),
				Module:         strings.TrimSpace(cell("Module")),
				Precondition:   cell("Precondition"),
				Steps:          cell("Steps"),
				ExpectedResult: cell("Expected Result"),
				Priority:       priority(cell("Priority")),
				Status:         status(cell("Status")),
				Tags:           splitTags(cell("Tags")),
				CreatedBy:      ImportedBy,
			},
		})
	}
	return rows, nil
}

func blank(cells []string) bool {
	return !slices.ContainsFunc(cells, func(c string) bool { return strings.TrimSpace(c) != "" })
}

func priority(raw string) models.Priority {
	if p, ok := models.ParsePriority(raw); ok {
		return p
	}
	return models.Priority(strings.TrimSpace(raw))
}

func status(raw string) models.Status {
	if s, ok := models.ParseStatus(raw); ok {
		return s
	}
	return models.Status(strings.TrimSpace(raw))
}

func splitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Validate reports every problem found in rows, one message per problem.
// An empty priority or status is fine; the catalog applies the default.
func Validate(rows []Row) []string {
	var problems []string
	for _, r := range rows {
		if r.Record.TestCaseID == "" {
			problems = append(problems, fmt.Sprintf("Row %d: Missing Test Case ID", r.Line))
		}
		if r.Record.Title == "" {
			problems = append(problems, fmt.Sprintf("Row %d: Missing Title", r.Line))
		}
		if r.Record.Module == "" {
			problems = append(problems, fmt.Sprintf("Row %d: Missing Module", r.Line))
		}
		if r.Record.Priority != "" && !r.Record.Priority.Valid() {
			problems = append(problems, fmt.Sprintf("Row %d: Invalid Priority %q", r.Line, r.Record.Priority))
		}
		if r.Record.Status != "" && !r.Record.Status.Valid() {
			problems = append(problems, fmt.Sprintf("Row %d: Invalid Status %q", r.Line, r.Record.Status))
		}
	}
	return problems
}

// Records strips the line numbers.
func Records(rows []Row) []models.ImportRecord {
	out := make([]models.ImportRecord, len(rows))
	for i, r := range rows {
		out[i] = r.Record
	}
	return out
}
