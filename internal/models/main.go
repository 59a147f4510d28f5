// Package models defines the core data structures for test cases, modules and users.
package models

import (
	"strings"
	"time"
)

// Priority ranks how urgent a test case is.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every valid priority in ascending order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePriority matches s against the known priorities ignoring case and
// surrounding spaces.
func ParsePriority(s string) (Priority, bool) {
	s = strings.TrimSpace(s)
	for _, v := range Priorities {
		if strings.EqualFold(s, string(v)) {
			return v, true
		}
	}
	return "", false
}

// Status is the lifecycle state of a test case.
type Status string

const (
	StatusDraft  Status = "Draft"
	StatusFinal  Status = "Final"
	StatusPassed Status = "Passed"
	StatusFailed Status = "Failed"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusDraft, StatusFinal, StatusPassed, StatusFailed}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus matches s against the known statuses ignoring case and
// surrounding spaces.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, v := range Statuses {
		if strings.EqualFold(s, string(v)) {
			return v, true
		}
	}
	return "", false
}

// TestCase is a single manual test scenario.
type TestCase struct {
	// ID is the system-generated identifier.
	ID string `json:"id"`
	// TestCaseID is the user-supplied business identifier, unique across the catalog.
	TestCaseID string `json:"testCaseId"`
	Title      string `json:"title"`
	// Module references Module.Name.
	Module         string   `json:"module"`
	Precondition   string   `json:"precondition"`
	Steps          string   `json:"steps"`
	ExpectedResult string   `json:"expectedResult"`
	Tags           []string `json:"tags,omitempty"`
	Priority       Priority `json:"priority"`
	Status         Status   `json:"status"`
	// CreatedBy holds the creator's username.
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Screenshots []string  `json:"screenshots,omitempty"`
}

// NewTestCase carries the caller-supplied attributes of a test case to create.
type NewTestCase struct {
	TestCaseID     string   `json:"testCaseId"`
	Title          string   `json:"title"`
	Module         string   `json:"module"`
	Precondition   string   `json:"precondition"`
	Steps          string   `json:"steps"`
	ExpectedResult string   `json:"expectedResult"`
	Tags           []string `json:"tags"`
	Priority       Priority `json:"priority"`
	Status         Status   `json:"status"`
	CreatedBy      string   `json:"createdBy"`
	Screenshots    []string `json:"screenshots"`
}

// TestCasePatch is a partial update; nil fields are left unchanged.
type TestCasePatch struct {
	TestCaseID     *string   `json:"testCaseId,omitempty"`
	Title          *string   `json:"title,omitempty"`
	Module         *string   `json:"module,omitempty"`
	Precondition   *string   `json:"precondition,omitempty"`
	Steps          *string   `json:"steps,omitempty"`
	ExpectedResult *string   `json:"expectedResult,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	Priority       *Priority `json:"priority,omitempty"`
	Status         *Status   `json:"status,omitempty"`
	Screenshots    *[]string `json:"screenshots,omitempty"`
}

// Module groups test cases under a name.
type Module struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewModule carries the attributes of a module to create.
type NewModule struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModulePatch is a partial module update.
type ModulePatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ImportRecord is a loosely-typed candidate row coming from a spreadsheet.
type ImportRecord struct {
	TestCaseID     string   `json:"testCaseId"`
	Title          string   `json:"title"`
	Module         string   `json:"module"`
	Precondition   string   `json:"precondition"`
	Steps          string   `json:"steps"`
	ExpectedResult string   `json:"expectedResult"`
	Priority       Priority `json:"priority"`
	Status         Status   `json:"status"`
	Tags           []string `json:"tags"`
	CreatedBy      string   `json:"createdBy"`
}

// ImportResult counts the outcome of a bulk import.
type ImportResult struct {
	Added      int `json:"added"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}
