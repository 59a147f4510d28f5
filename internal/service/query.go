package service

import (
	"slices"
	"strings"

	"github.com/karnan008/QA-Test-Manager/internal/models"
)

// All is the filter sentinel meaning "no restriction".
const All = "all"

// Filter narrows a list of test cases. Empty fields and All match everything.
type Filter struct {
	// Search is matched case-insensitively against title, business id, steps and expected result.
	Search    string
	Module    string
	Status    string
	Priority  string
	CreatedBy string
}

// Match reports whether tc passes every part of the filter.
func (f Filter) Match(tc models.TestCase) bool {
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !containsFold(tc.Title, term) &&
			!containsFold(tc.TestCaseID, term) &&
			!containsFold(tc.Steps, term) &&
			!containsFold(tc.ExpectedResult, term) {
			return false
		}
	}
	return matchExact(f.Module, tc.Module) &&
		matchExact(f.Status, string(tc.Status)) &&
		matchExact(f.Priority, string(tc.Priority)) &&
		matchExact(f.CreatedBy, tc.CreatedBy)
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

func matchExact(filter, value string) bool {
	return filter == "" || filter == All || filter == value
}

// FilterTestCases returns the test cases matching f, keeping their order.
func FilterTestCases(tcs []models.TestCase, f Filter) []models.TestCase {
	out := make([]models.TestCase, 0, len(tcs))
	for _, tc := range tcs {
		if f.Match(tc) {
			out = append(out, tc)
		}
	}
	return out
}

// SortColumn names a sortable test case attribute.
type SortColumn string

const (
	SortByTestCaseID SortColumn = "testCaseId"
	SortByTitle      SortColumn = "title"
	SortByModule     SortColumn = "module"
	SortByPriority   SortColumn = "priority"
	SortByStatus     SortColumn = "status"
	SortByCreatedBy  SortColumn = "createdBy"
	SortByCreatedAt  SortColumn = "createdAt"
	SortByUpdatedAt  SortColumn = "updatedAt"
)

var sortColumns = []SortColumn{
	SortByTestCaseID, SortByTitle, SortByModule, SortByPriority,
	SortByStatus, SortByCreatedBy, SortByCreatedAt, SortByUpdatedAt,
}

// ParseSortColumn resolves a column name; an empty name selects the business id.
func ParseSortColumn(s string) (SortColumn, bool) {
	if s == "" {
		return SortByTestCaseID, true
	}
	for _, c := range sortColumns {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// SortDirection orders a sort.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// ParseSortDirection resolves a direction; anything other than "desc" is ascending.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(s, string(Descending)) {
		return Descending
	}
	return Ascending
}

// SortTestCases returns a sorted copy of tcs. Strings compare ignoring case,
// timestamps by instant. Equal keys keep their input order.
func SortTestCases(tcs []models.TestCase, col SortColumn, dir SortDirection) []models.TestCase {
	out := slices.Clone(tcs)
	slices.SortStableFunc(out, func(a, b models.TestCase) int {
		c := compareBy(col, a, b)
		if dir == Descending {
			return -c
		}
		return c
	})
	return out
}

func compareBy(col SortColumn, a, b models.TestCase) int {
	switch col {
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByTitle:
		return compareFold(a.Title, b.Title)
	case SortByModule:
		return compareFold(a.Module, b.Module)
	case SortByPriority:
		return compareFold(string(a.Priority), string(b.Priority))
	case SortByStatus:
		return compareFold(string(a.Status), string(b.Status))
	case SortByCreatedBy:
		return compareFold(a.CreatedBy, b.CreatedBy)
	default:
		return compareFold(a.TestCaseID, b.TestCaseID)
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// CanEdit reports whether user may edit or delete tc: admins always, members only their own.
func CanEdit(user models.User, tc models.TestCase) bool {
	return user.IsAdmin() || tc.CreatedBy == user.Username
}
