// Package service holds the catalog, session and team stores and the
// derived views over them. Persistence is delegated to a storage.KV.
package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/storage"
)

// DefaultModules are seeded when no module collection has ever been persisted.
var DefaultModules = []models.NewModule{
	{Name: "Authentication", Description: "Login and user management"},
	{Name: "User Interface", Description: "UI components and interactions"},
	{Name: "API", Description: "Backend API testing"},
}

// CatalogStore is the single source of truth for test cases and modules.
// Every mutation is written through to the KV before it becomes visible.
type CatalogStore struct {
	mu  sync.RWMutex
	kv  storage.KV
	log *zap.Logger
	stamper

	testCases []models.TestCase
	modules   []models.Module

	searchTerm     string
	selectedModule string
}

// NewCatalogStore loads the persisted collections from kv.
func NewCatalogStore(ctx context.Context, kv storage.KV, log *zap.Logger, opts ...Option) (*CatalogStore, error) {
	s := &CatalogStore{
		kv:             kv,
		log:            log,
		stamper:        newStamper(opts),
		selectedModule: All,
	}

	testCases, _, err := loadCollection[models.TestCase](ctx, kv, storage.KeyTestCases, log)
	if err != nil {
		return nil, err
	}
	s.testCases = nonNil(testCases)

	modules, present, err := loadCollection[models.Module](ctx, kv, storage.KeyModules, log)
	if err != nil {
		return nil, err
	}
	if !present {
		now := s.now()
		for _, m := range DefaultModules {
			modules = append(modules, models.Module{ID: s.newID(), Name: m.Name, Description: m.Description, CreatedAt: now})
		}
		if err := saveJSON(ctx, kv, storage.KeyModules, modules); err != nil {
			return nil, err
		}
	}
	s.modules = nonNil(modules)

	return s, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// TestCases returns a copy of every test case in insertion order.
func (s *CatalogStore) TestCases() []models.TestCase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TestCase, len(s.testCases))
	for i, tc := range s.testCases {
		out[i] = cloneTestCase(tc)
	}
	return out
}

// TestCase returns the test case with the given system id.
func (s *CatalogStore) TestCase(id string) (models.TestCase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexTestCase(id); i >= 0 {
		return cloneTestCase(s.testCases[i]), true
	}
	return models.TestCase{}, false
}

// Modules returns a copy of every module in insertion order.
func (s *CatalogStore) Modules() []models.Module {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.modules)
}

// Module returns the module with the given id.
func (s *CatalogStore) Module(id string) (models.Module, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexModule(id); i >= 0 {
		return s.modules[i], true
	}
	return models.Module{}, false
}

// AddTestCase validates in, stamps it with a new id and timestamps and appends it.
func (s *CatalogStore) AddTestCase(ctx context.Context, in models.NewTestCase) (models.TestCase, error) {
	tc := models.TestCase{
		TestCaseID:     strings.TrimSpace(in.TestCaseID),
		Title:          strings.TrimSpace(in.Title),
		Module:         strings.TrimSpace(in.Module),
		Precondition:   in.Precondition,
		Steps:          in.Steps,
		ExpectedResult: in.ExpectedResult,
		Tags:           slices.Clone(in.Tags),
		Priority:       in.Priority,
		Status:         in.Status,
		CreatedBy:      in.CreatedBy,
		Screenshots:    slices.Clone(in.Screenshots),
	}
	if tc.Priority == "" {
		tc.Priority = models.PriorityMedium
	}
	if tc.Status == "" {
		tc.Status = models.StatusDraft
	}
	if tc.CreatedBy == "" {
		tc.CreatedBy = "Unknown"
	}
	if err := validateTestCase(tc); err != nil {
		return models.TestCase{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexBusinessID(tc.TestCaseID, "") >= 0 {
		return models.TestCase{}, fmt.Errorf("%w: %s", ErrDuplicateTestCaseID, tc.TestCaseID)
	}
	if !s.hasModuleName(tc.Module) {
		return models.TestCase{}, fmt.Errorf("%w: %s", ErrUnknownModule, tc.Module)
	}

	now := s.now()
	tc.ID = s.newID()
	tc.CreatedAt = now
	tc.UpdatedAt = now

	next := append(slices.Clip(s.testCases), tc)
	if err := s.commitTestCases(ctx, next); err != nil {
		return models.TestCase{}, err
	}
	return cloneTestCase(tc), nil
}

// UpdateTestCase merges patch onto the test case with the given id and
// refreshes its UpdatedAt. found is false, with no error, when id is unknown.
func (s *CatalogStore) UpdateTestCase(ctx context.Context, id string, patch models.TestCasePatch) (tc models.TestCase, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexTestCase(id)
	if i < 0 {
		return models.TestCase{}, false, nil
	}
	prev := s.testCases[i]
	tc = cloneTestCase(prev)
	applyTestCasePatch(&tc, patch)

	if err := validateTestCase(tc); err != nil {
		return models.TestCase{}, true, err
	}
	if tc.TestCaseID != prev.TestCaseID && s.indexBusinessID(tc.TestCaseID, id) >= 0 {
		return models.TestCase{}, true, fmt.Errorf("%w: %s", ErrDuplicateTestCaseID, tc.TestCaseID)
	}
	if tc.Module != prev.Module && !s.hasModuleName(tc.Module) {
		return models.TestCase{}, true, fmt.Errorf("%w: %s", ErrUnknownModule, tc.Module)
	}
	tc.UpdatedAt = s.after(prev.UpdatedAt)

	next := slices.Clone(s.testCases)
	next[i] = tc
	if err := s.commitTestCases(ctx, next); err != nil {
		return models.TestCase{}, true, err
	}
	return cloneTestCase(tc), true, nil
}

// DeleteTestCase removes the test case with the given id.
func (s *CatalogStore) DeleteTestCase(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexTestCase(id)
	if i < 0 {
		return false, nil
	}
	next := slices.Delete(slices.Clone(s.testCases), i, i+1)
	if err := s.commitTestCases(ctx, next); err != nil {
		return true, err
	}
	return true, nil
}

// AddModule creates a module. Names are unique ignoring case.
func (s *CatalogStore) AddModule(ctx context.Context, in models.NewModule) (models.Module, error) {
	m := models.Module{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	var v validation
	v.require(m.Name, "Module name is required")
	if err := v.err(); err != nil {
		return models.Module{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexModuleName(m.Name, "") >= 0 {
		return models.Module{}, fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name)
	}
	m.ID = s.newID()
	m.CreatedAt = s.now()

	next := append(slices.Clip(s.modules), m)
	if err := s.commitModules(ctx, next); err != nil {
		return models.Module{}, err
	}
	return m, nil
}

// UpdateModule merges patch onto the module. A rename is carried over to
// every test case that referenced the old name. Module timestamps are not touched.
func (s *CatalogStore) UpdateModule(ctx context.Context, id string, patch models.ModulePatch) (m models.Module, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexModule(id)
	if i < 0 {
		return models.Module{}, false, nil
	}
	prev := s.modules[i]
	m = prev
	if patch.Name != nil {
		m.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		m.Description = strings.TrimSpace(*patch.Description)
	}

	var v validation
	v.require(m.Name, "Module name is required")
	if err := v.err(); err != nil {
		return models.Module{}, true, err
	}
	if s.indexModuleName(m.Name, id) >= 0 {
		return models.Module{}, true, fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name)
	}

	modules := slices.Clone(s.modules)
	modules[i] = m

	var testCases []models.TestCase
	renamed := 0
	if m.Name != prev.Name {
		testCases = slices.Clone(s.testCases)
		for j := range testCases {
			if testCases[j].Module == prev.Name {
				testCases[j].Module = m.Name
				testCases[j].UpdatedAt = s.after(testCases[j].UpdatedAt)
				renamed++
			}
		}
	}
	if renamed == 0 {
		testCases = nil
	}
	if err := s.commitCascade(ctx, testCases, modules); err != nil {
		return models.Module{}, true, err
	}
	if renamed > 0 {
		s.log.Info("module renamed",
			zap.String("from", prev.Name), zap.String("to", m.Name), zap.Int("test_cases", renamed))
	}
	return m, true, nil
}

// DeleteModule removes the module and every test case whose module name
// matched it at deletion time. It returns how many test cases went with it.
func (s *CatalogStore) DeleteModule(ctx context.Context, id string) (removed int, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexModule(id)
	if i < 0 {
		return 0, false, nil
	}
	name := s.modules[i].Name

	modules := slices.Delete(slices.Clone(s.modules), i, i+1)
	testCases := slices.DeleteFunc(slices.Clone(s.testCases), func(tc models.TestCase) bool {
		return tc.Module == name
	})
	removed = len(s.testCases) - len(testCases)
	if removed == 0 {
		testCases = nil
	}
	if err := s.commitCascade(ctx, testCases, modules); err != nil {
		return 0, true, err
	}
	s.log.Info("module deleted", zap.String("module", name), zap.Int("test_cases", removed))
	return removed, true, nil
}

// SearchTerm returns the shared free-text filter.
func (s *CatalogStore) SearchTerm() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchTerm
}

// SetSearchTerm replaces the shared free-text filter.
func (s *CatalogStore) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchTerm = term
}

// SelectedModule returns the shared module filter, All when unset.
func (s *CatalogStore) SelectedModule() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedModule
}

// SetSelectedModule replaces the shared module filter. An empty name resets it to All.
func (s *CatalogStore) SetSelectedModule(module string) {
	if module == "" {
		module = All
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedModule = module
}

// Visible returns the test cases passing the shared search and module
// filters plus the status, priority and creator parts of extra.
func (s *CatalogStore) Visible(extra Filter) []models.TestCase {
	s.mu.RLock()
	f := Filter{
		Search:    s.searchTerm,
		Module:    s.selectedModule,
		Status:    extra.Status,
		Priority:  extra.Priority,
		CreatedBy: extra.CreatedBy,
	}
	s.mu.RUnlock()
	return FilterTestCases(s.TestCases(), f)
}

func (s *CatalogStore) commitTestCases(ctx context.Context, next []models.TestCase) error {
	if err := saveJSON(ctx, s.kv, storage.KeyTestCases, next); err != nil {
		return err
	}
	s.testCases = next
	return nil
}

func (s *CatalogStore) commitModules(ctx context.Context, next []models.Module) error {
	if err := saveJSON(ctx, s.kv, storage.KeyModules, next); err != nil {
		return err
	}
	s.modules = next
	return nil
}

// commitCascade persists testCases, when non-nil, and then modules. If the
// module write fails the previous test cases are written back and kept in memory.
func (s *CatalogStore) commitCascade(ctx context.Context, testCases []models.TestCase, modules []models.Module) error {
	if testCases == nil {
		return s.commitModules(ctx, modules)
	}
	prev := s.testCases
	if err := s.commitTestCases(ctx, testCases); err != nil {
		return err
	}
	if err := s.commitModules(ctx, modules); err != nil {
		if rerr := saveJSON(ctx, s.kv, storage.KeyTestCases, prev); rerr != nil {
			s.log.Error("restore test cases after failed module write", zap.Error(rerr))
		}
		s.testCases = prev
		return err
	}
	return nil
}

func (s *CatalogStore) indexTestCase(id string) int {
	return slices.IndexFunc(s.testCases, func(tc models.TestCase) bool { return tc.ID == id })
}

// indexBusinessID finds a test case using businessID, ignoring the one with system id except.
func (s *CatalogStore) indexBusinessID(businessID, except string) int {
	return slices.IndexFunc(s.testCases, func(tc models.TestCase) bool {
		return tc.TestCaseID == businessID && tc.ID != except
	})
}

func (s *CatalogStore) indexModule(id string) int {
	return slices.IndexFunc(s.modules, func(m models.Module) bool { return m.ID == id })
}

func (s *CatalogStore) indexModuleName(name, except string) int {
	return slices.IndexFunc(s.modules, func(m models.Module) bool {
		return strings.EqualFold(m.Name, name) && m.ID != except
	})
}

func (s *CatalogStore) hasModuleName(name string) bool {
	return slices.ContainsFunc(s.modules, func(m models.Module) bool { return m.Name == name })
}

func validateTestCase(tc models.TestCase) error {
	var v validation
	v.require(tc.TestCaseID, "Missing Test Case ID")
	v.require(tc.Title, "Missing Title")
	v.require(tc.Module, "Missing Module")
	if !tc.Priority.Valid() {
		v.add(fmt.Sprintf("Invalid Priority %q", tc.Priority))
	}
	if !tc.Status.Valid() {
		v.add(fmt.Sprintf("Invalid Status %q", tc.Status))
	}
	return v.err()
}

func applyTestCasePatch(tc *models.TestCase, p models.TestCasePatch) {
	if p.TestCaseID != nil {
		tc.TestCaseID = strings.TrimSpace(*p.TestCaseID)
	}
	if p.Title != nil {
		tc.Title = strings.TrimSpace(*p.Title)
	}
	if p.Module != nil {
		tc.Module = strings.TrimSpace(*p.Module)
	}
	if p.Precondition != nil {
		tc.Precondition = *p.Precondition
	}
	if p.Steps != nil {
		tc.Steps = *p.Steps
	}
	if p.ExpectedResult != nil {
		tc.ExpectedResult = *p.ExpectedResult
	}
	if p.Tags != nil {
		tc.Tags = slices.Clone(*p.Tags)
	}
	if p.Priority != nil {
		tc.Priority = *p.Priority
	}
	if p.Status != nil {
		tc.Status = *p.Status
	}
	if p.Screenshots != nil {
		tc.Screenshots = slices.Clone(*p.Screenshots)
	}
}

func cloneTestCase(tc models.TestCase) models.TestCase {
	tc.Tags = slices.Clone(tc.Tags)
	tc.Screenshots = slices.Clone(tc.Screenshots)
	return tc
}
