package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/models"
)

// ImportTestCases merges candidate records into the catalog.
//
// A record missing its business id, title or module is skipped. A record
// whose business id already exists, either before the batch or earlier in
// the same batch, is a duplicate. Everything else is added with defaults
// filled in. Invalid records never abort the batch; all additions are
// persisted in one write.
func (s *CatalogStore) ImportTestCases(ctx context.Context, records []models.ImportRecord) (models.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res models.ImportResult
	seen := make(map[string]struct{}, len(s.testCases)+len(records))
	for _, tc := range s.testCases {
		seen[tc.TestCaseID] = struct{}{}
	}

	now := s.now()
	next := slices.Clip(s.testCases)
	for _, r := range records {
		businessID := strings.TrimSpace(r.TestCaseID)
		title := strings.TrimSpace(r.Title)
		module := strings.TrimSpace(r.Module)
		if businessID == "" || title == "" || module == "" {
			res.Skipped++
			continue
		}
		if _, dup := seen[businessID]; dup {
			res.Duplicates++
			continue
		}
		seen[businessID] = struct{}{}

		next = append(next, importedTestCase(r, businessID, title, module, s.newID(), now))
		res.Added++
	}

	if res.Added > 0 {
		if err := s.commitTestCases(ctx, next); err != nil {
			return models.ImportResult{}, err
		}
	}
	s.log.Info("imported test cases",
		zap.Int("added", res.Added), zap.Int("skipped", res.Skipped), zap.Int("duplicates", res.Duplicates))
	return res, nil
}

func importedTestCase(r models.ImportRecord, businessID, title, module, id string, now time.Time) models.TestCase {
	priority := r.Priority
	if !priority.Valid() {
		priority = models.PriorityMedium
	}
	status := r.Status
	if !status.Valid() {
		status = models.StatusDraft
	}
	createdBy := r.CreatedBy
	if createdBy == "" {
		createdBy = "Unknown"
	}
	tags := slices.Clone(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return models.TestCase{
		ID:             id,
		TestCaseID:     businessID,
		Title:          title,
		Module:         module,
		Precondition:   r.Precondition,
		Steps:          r.Steps,
		ExpectedResult: r.ExpectedResult,
		Tags:           tags,
		Priority:       priority,
		Status:         status,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
		Screenshots:    []string{},
	}
}
