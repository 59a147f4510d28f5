package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/karnan008/QA-Test-Manager/internal/models"
)

func businessIDs(tcs []models.TestCase) []string {
	out := make([]string, len(tcs))
	for i, tc := range tcs {
		out[i] = tc.TestCaseID
	}
	return out
}

func sampleCases() []models.TestCase {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.TestCase{
		{TestCaseID: "TC002", Title: "Logout clears session", Module: "Auth", Steps: "click logout",
			Priority: models.PriorityLow, Status: models.StatusPassed, CreatedBy: "tester", CreatedAt: base.Add(2 * time.Hour)},
		{TestCaseID: "TC001", Title: "login with valid credentials", Module: "Auth", ExpectedResult: "Dashboard shown",
			Priority: models.PriorityHigh, Status: models.StatusDraft, CreatedBy: "admin", CreatedAt: base},
		{TestCaseID: "TC003", Title: "Button colors", Module: "UI",
			Priority: models.PriorityHigh, Status: models.StatusFailed, CreatedBy: "tester", CreatedAt: base.Add(time.Hour)},
	}
}

func TestFilterTestCases(t *testing.T) {
	tcs := sampleCases()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"TC002", "TC001", "TC003"}},
		{"all sentinel", Filter{Module: All, Status: All, Priority: All, CreatedBy: All}, []string{"TC002", "TC001", "TC003"}},
		{"module exact", Filter{Module: "Auth"}, []string{"TC002", "TC001"}},
		{"module is case sensitive", Filter{Module: "auth"}, []string{}},
		{"search title ignores case", Filter{Search: "LOGIN"}, []string{"TC001"}},
		{"search business id", Filter{Search: "tc00"}, []string{"TC002", "TC001", "TC003"}},
		{"search steps", Filter{Search: "click"}, []string{"TC002"}},
		{"search expected result", Filter{Search: "dashboard"}, []string{"TC001"}},
		{"search ignores module", Filter{Search: "ui"}, []string{}},
		{"status", Filter{Status: "Failed"}, []string{"TC003"}},
		{"priority", Filter{Priority: "High"}, []string{"TC001", "TC003"}},
		{"creator", Filter{CreatedBy: "tester"}, []string{"TC002", "TC003"}},
		{"combined", Filter{Module: "Auth", Priority: "High", Search: "login"}, []string{"TC001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, businessIDs(FilterTestCases(tcs, tt.filter)))
		})
	}
}

func TestSortTestCases(t *testing.T) {
	tcs := sampleCases()

	assert.Equal(t, []string{"TC001", "TC002", "TC003"}, businessIDs(SortTestCases(tcs, SortByTestCaseID, Ascending)))
	assert.Equal(t, []string{"TC003", "TC002", "TC001"}, businessIDs(SortTestCases(tcs, SortByTestCaseID, Descending)))
	assert.Equal(t, []string{"TC003", "TC001", "TC002"}, businessIDs(SortTestCases(tcs, SortByTitle, Ascending)))
	assert.Equal(t, []string{"TC001", "TC003", "TC002"}, businessIDs(SortTestCases(tcs, SortByCreatedAt, Ascending)))
	assert.Equal(t, []string{"TC002", "TC003", "TC001"}, businessIDs(SortTestCases(tcs, SortByCreatedAt, Descending)))

	// equal keys keep input order in both directions
	assert.Equal(t, []string{"TC002", "TC001", "TC003"}, businessIDs(SortTestCases(tcs, SortByModule, Ascending)))
	assert.Equal(t, []string{"TC003", "TC002", "TC001"}, businessIDs(SortTestCases(tcs, SortByModule, Descending)))

	assert.Equal(t, "TC002", tcs[0].TestCaseID, "input must not be reordered")
}

func TestSortTestCases_TwoItems(t *testing.T) {
	tcs := []models.TestCase{{TestCaseID: "TC002"}, {TestCaseID: "TC001"}}
	assert.Equal(t, []string{"TC001", "TC002"}, businessIDs(SortTestCases(tcs, SortByTestCaseID, Ascending)))
	assert.Equal(t, []string{"TC002", "TC001"}, businessIDs(SortTestCases(tcs, SortByTestCaseID, Descending)))
}

func TestParseSort(t *testing.T) {
	col, ok := ParseSortColumn("")
	assert.True(t, ok)
	assert.Equal(t, SortByTestCaseID, col)

	col, ok = ParseSortColumn("updatedAt")
	assert.True(t, ok)
	assert.Equal(t, SortByUpdatedAt, col)

	_, ok = ParseSortColumn("steps")
	assert.False(t, ok)

	assert.Equal(t, Descending, ParseSortDirection("DESC"))
	assert.Equal(t, Ascending, ParseSortDirection("sideways"))
}

func TestCanEdit(t *testing.T) {
	tc := models.TestCase{CreatedBy: "tester"}
	assert.True(t, CanEdit(models.User{Username: "admin", Role: models.RoleAdmin}, tc))
	assert.True(t, CanEdit(models.User{Username: "tester", Role: models.RoleMember}, tc))
	assert.False(t, CanEdit(models.User{Username: "other", Role: models.RoleMember}, tc))
}
