package client

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/report"
)

// PrintTestCases writes one aligned line per test case.
func PrintTestCases(w io.Writer, tcs []models.TestCase) error {
	if len(tcs) == 0 {
		_, err := fmt.Fprintln(w, "No test cases found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTEST CASE\tTITLE\tMODULE\tPRIORITY\tSTATUS\tCREATED BY")
	for _, tc := range tcs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tc.ID, tc.TestCaseID, tc.Title, tc.Module, tc.Priority, tc.Status, tc.CreatedBy)
	}
	return tw.Flush()
}

// PrintTestCase writes every attribute of tc.
func PrintTestCase(w io.Writer, tc models.TestCase) {
	fmt.Fprintf(w, "%s  %s\n", tc.TestCaseID, tc.Title)
	fmt.Fprintf(w, "Module: %s  Priority: %s  Status: %s\n", tc.Module, tc.Priority, tc.Status)
	fmt.Fprintf(w, "Created by %s on %s, updated %s\n",
		tc.CreatedBy, tc.CreatedAt.Format("2006-01-02"), tc.UpdatedAt.Format("2006-01-02"))
	if len(tc.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(tc.Tags, ", "))
	}
	fmt.Fprintf(w, "Precondition:\n%s\nSteps:\n%s\nExpected Result:\n%s\n", tc.Precondition, tc.Steps, tc.ExpectedResult)
}

// PrintModules writes one line per module with its status tally.
func PrintModules(w io.Writer, ms []ModuleStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODULE\tTOTAL\tPASSED\tFAILED\tDRAFT")
	for _, m := range ms {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", m.ID, m.Name, m.Stats.Total, m.Stats.Passed, m.Stats.Failed, m.Stats.Draft)
	}
	return tw.Flush()
}

// PrintDashboard writes the headline figures and the pass rate per module.
func PrintDashboard(w io.Writer, d report.Dashboard) {
	fmt.Fprintf(w, "Total: %d  Passed: %d  Failed: %d  Pending: %d  Modules: %d\n",
		d.Total, d.Passed, d.Failed, d.Pending, d.Modules)
	for _, m := range d.ModuleStats {
		fmt.Fprintf(w, "  %s: %d test cases, %d%% passed\n", m.Module.Name, m.Total, m.PassRate)
	}
}
