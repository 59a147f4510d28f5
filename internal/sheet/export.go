package sheet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/report"
)

// Sheet names and file names of the generated workbooks.
const (
	TemplateSheet  = "Test Cases"
	TestCasesSheet = "Test Cases Report"
	SummarySheet   = "Summary Report"

	TemplateFileName = "test_cases_template.xlsx"
	TestCasesPrefix  = "test-cases-report"
	SummaryPrefix    = "summary-report"
)

const dateLayout = "2006-01-02"

// ExportColumns is the header row of the detailed export.
var ExportColumns = []string{
	"Test Case ID", "Title", "Module", "Priority", "Status", "Created By",
	"Created Date", "Updated Date", "Precondition", "Steps", "Expected Result", "Tags",
}

// FileName names an export produced at now, e.g. "summary-report-2025-01-31.xlsx".
func FileName(prefix string, now time.Time) string {
	return prefix + "-" + now.UTC().Format(dateLayout) + ".xlsx"
}

// WriteTemplate writes an import workbook with the full header row and two sample rows.
func WriteTemplate(w io.Writer) error {
	header := append(append([]string{}, RequiredColumns...), OptionalColumns...)
	samples := [][]any{
		{
			"TC001", "Login with valid credentials", "Authentication", "User account exists",
			"1. Navigate to login page\n2. Enter valid email\n3. Enter valid password\n4. Click login button",
			"User should be logged in successfully", "High", "Draft", "login, authentication",
		},
		{
			"TC002", "Login with invalid credentials", "Authentication", "User account exists",
			"1. Navigate to login page\n2. Enter invalid email\n3. Enter invalid password\n4. Click login button",
			"Error message should be displayed", "Medium", "Draft", "login, negative",
		},
	}
	return writeSheet(w, TemplateSheet, header, samples)
}

// WriteTestCases writes one row per test case.
func WriteTestCases(w io.Writer, tcs []models.TestCase) error {
	rows := make([][]any, 0, len(tcs))
	for _, tc := range tcs {
		rows = append(rows, []any{
			tc.TestCaseID, tc.Title, tc.Module, string(tc.Priority), string(tc.Status), tc.CreatedBy,
			tc.CreatedAt.Format(dateLayout), tc.UpdatedAt.Format(dateLayout),
			tc.Precondition, tc.Steps, tc.ExpectedResult, strings.Join(tc.Tags, ", "),
		})
	}
	return writeSheet(w, TestCasesSheet, ExportColumns, rows)
}

// WriteSummary writes Metric/Value rows: the total, every status and one row per module.
func WriteSummary(w io.Writer, s report.Summary) error {
	rows := [][]any{{"Total Test Cases", s.Total}}
	for _, st := range models.Statuses {
		rows = append(rows, []any{string(st), s.Status(st)})
	}
	for _, m := range s.ByModule {
		rows = append(rows, []any{"Module: " + m.Name, m.Value})
	}
	return writeSheet(w, SummarySheet, []string{"Metric", "Value"}, rows)
}

func writeSheet(w io.Writer, name string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	for i, row := range append([][]any{head}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
