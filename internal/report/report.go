// Package report derives the dashboard, summary and chart views from the
// catalog. Everything here is a pure function of its input.
package report

import (
	"math"
	"slices"

	"github.com/karnan008/QA-Test-Manager/internal/models"
)

const all = "all"

// Filter narrows the test cases a report covers. Empty fields and "all" match everything.
type Filter struct {
	Module    string
	CreatedBy string
}

// Apply returns the matching test cases in their original order.
func (f Filter) Apply(tcs []models.TestCase) []models.TestCase {
	out := make([]models.TestCase, 0, len(tcs))
	for _, tc := range tcs {
		if match(f.Module, tc.Module) && match(f.CreatedBy, tc.CreatedBy) {
			out = append(out, tc)
		}
	}
	return out
}

func match(filter, value string) bool {
	return filter == "" || filter == all || filter == value
}

// StatusCounts tallies test cases per status.
type StatusCounts struct {
	Total  int `json:"total"`
	Draft  int `json:"draft"`
	Final  int `json:"final"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// CountStatuses tallies tcs per status.
func CountStatuses(tcs []models.TestCase) StatusCounts {
	var c StatusCounts
	for _, tc := range tcs {
		c.Total++
		switch tc.Status {
		case models.StatusDraft:
			c.Draft++
		case models.StatusFinal:
			c.Final++
		case models.StatusPassed:
			c.Passed++
		case models.StatusFailed:
			c.Failed++
		}
	}
	return c
}

// UserStats tallies the test cases created by username.
func UserStats(tcs []models.TestCase, username string) StatusCounts {
	return CountStatuses(Filter{CreatedBy: username}.Apply(tcs))
}

// ModuleCounts tallies the test cases of the named module.
func ModuleCounts(tcs []models.TestCase, module string) StatusCounts {
	return CountStatuses(Filter{Module: module}.Apply(tcs))
}

// ModuleStat is the pass rate of a single module.
type ModuleStat struct {
	Module   models.Module `json:"module"`
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	PassRate int           `json:"passRate"`
}

// Dashboard is the landing page overview.
type Dashboard struct {
	Total   int               `json:"total"`
	Passed  int               `json:"passed"`
	Failed  int               `json:"failed"`
	Pending int               `json:"pending"`
	Modules int               `json:"modules"`
	Recent  []models.TestCase `json:"recent"`
	// ModuleStats follows the order of the modules.
	ModuleStats []ModuleStat `json:"moduleStats"`
}

const recentLimit = 5

// NewDashboard computes the overview. Pending counts drafts; Recent holds
// the most recently updated test cases.
func NewDashboard(tcs []models.TestCase, modules []models.Module) Dashboard {
	c := CountStatuses(tcs)
	d := Dashboard{
		Total:       c.Total,
		Passed:      c.Passed,
		Failed:      c.Failed,
		Pending:     c.Draft,
		Modules:     len(modules),
		ModuleStats: make([]ModuleStat, 0, len(modules)),
	}

	recent := slices.Clone(tcs)
	slices.SortStableFunc(recent, func(a, b models.TestCase) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	d.Recent = recent[:min(recentLimit, len(recent))]

	for _, m := range modules {
		mc := ModuleCounts(tcs, m.Name)
		d.ModuleStats = append(d.ModuleStats, ModuleStat{
			Module:   m,
			Total:    mc.Total,
			Passed:   mc.Passed,
			Failed:   mc.Failed,
			PassRate: passRate(mc.Passed, mc.Total),
		})
	}
	return d
}

func passRate(passed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(passed) * 100 / float64(total)))
}

// Count is a named tally.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Summary groups test cases by status, priority and module. Groups appear
// in the order their first member appears.
type Summary struct {
	Total      int     `json:"total"`
	ByStatus   []Count `json:"byStatus"`
	ByPriority []Count `json:"byPriority"`
	ByModule   []Count `json:"byModule"`
}

// Summarize groups tcs.
func Summarize(tcs []models.TestCase) Summary {
	s := Summary{Total: len(tcs), ByStatus: []Count{}, ByPriority: []Count{}, ByModule: []Count{}}
	for _, tc := range tcs {
		s.ByStatus = increment(s.ByStatus, string(tc.Status))
		s.ByPriority = increment(s.ByPriority, string(tc.Priority))
		s.ByModule = increment(s.ByModule, tc.Module)
	}
	return s
}

func increment(counts []Count, name string) []Count {
	if i := slices.IndexFunc(counts, func(c Count) bool { return c.Name == name }); i >= 0 {
		counts[i].Value++
		return counts
	}
	return append(counts, Count{Name: name, Value: 1})
}

// Status returns the tally of st, zero when absent.
func (s Summary) Status(st models.Status) int {
	return lookup(s.ByStatus, string(st))
}

func lookup(counts []Count, name string) int {
	if i := slices.IndexFunc(counts, func(c Count) bool { return c.Name == name }); i >= 0 {
		return counts[i].Value
	}
	return 0
}

var (
	statusColors = map[models.Status]string{
		models.StatusDraft:  "#6b7280",
		models.StatusFinal:  "#3b82f6",
		models.StatusPassed: "#10b981",
		models.StatusFailed: "#ef4444",
	}
	priorityColors = map[models.Priority]string{
		models.PriorityLow:      "#10b981",
		models.PriorityMedium:   "#f59e0b",
		models.PriorityHigh:     "#f97316",
		models.PriorityCritical: "#ef4444",
	}
)

// Point is one slice or bar of a chart.
type Point struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color,omitempty"`
}

// Charts holds the series rendered on the reports page.
type Charts struct {
	Status   []Point `json:"status"`
	Priority []Point `json:"priority"`
	Module   []Point `json:"module"`
}

// NewCharts turns a summary into chart series. Module bars carry no color.
func NewCharts(s Summary) Charts {
	c := Charts{
		Status:   make([]Point, 0, len(s.ByStatus)),
		Priority: make([]Point, 0, len(s.ByPriority)),
		Module:   make([]Point, 0, len(s.ByModule)),
	}
	for _, v := range s.ByStatus {
		c.Status = append(c.Status, Point{Name: v.Name, Value: v.Value, Color: statusColors[models.Status(v.Name)]})
	}
	for _, v := range s.ByPriority {
		c.Priority = append(c.Priority, Point{Name: v.Name, Value: v.Value, Color: priorityColors[models.Priority(v.Name)]})
	}
	for _, v := range s.ByModule {
		c.Module = append(c.Module, Point{Name: v.Name, Value: v.Value})
	}
	return c
}

// Creators lists the distinct non-empty creators in order of first appearance.
func Creators(tcs []models.TestCase) []string {
	out := []string{}
	for _, tc := range tcs {
		if tc.CreatedBy != "" && !slices.Contains(out, tc.CreatedBy) {
			out = append(out, tc.CreatedBy)
		}
	}
	return out
}

// TeamStats counts team accounts.
type TeamStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Admins  int `json:"admins"`
	Members int `json:"members"`
}

// CountTeam tallies users by activity and role.
func CountTeam(users []models.TeamUser) TeamStats {
	var s TeamStats
	for _, u := range users {
		s.Total++
		if u.IsActive {
			s.Active++
		}
		switch u.Role {
		case models.RoleAdmin:
			s.Admins++
		case models.RoleMember:
			s.Members++
		}
	}
	return s
}
