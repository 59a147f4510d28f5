package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/storage"
)

// fakeClock advances by one second on every read.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newTestCatalog(t *testing.T, kv storage.KV) *CatalogStore {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, err := NewCatalogStore(context.Background(), kv, zap.NewNop(),
		WithClock(clock.now), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	return s
}

func addCase(t *testing.T, s *CatalogStore, businessID, module string) models.TestCase {
	t.Helper()
	tc, err := s.AddTestCase(context.Background(), models.NewTestCase{
		TestCaseID: businessID, Title: "title " + businessID, Module: module, CreatedBy: "admin",
	})
	require.NoError(t, err)
	return tc
}

func moduleID(t *testing.T, s *CatalogStore, name string) string {
	t.Helper()
	for _, m := range s.Modules() {
		if m.Name == name {
			return m.ID
		}
	}
	t.Fatalf("module %q not found", name)
	return ""
}

func TestNewCatalogStore_SeedsDefaultModules(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestCatalog(t, kv)

	mods := s.Modules()
	require.Len(t, mods, 3)
	assert.Equal(t, "Authentication", mods[0].Name)
	assert.Equal(t, "User Interface", mods[1].Name)
	assert.Equal(t, "API", mods[2].Name)

	_, ok, _ := kv.Get(context.Background(), storage.KeyModules)
	assert.True(t, ok, "default modules must be persisted")
	assert.Empty(t, s.TestCases())
}

func TestNewCatalogStore_Reload(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestCatalog(t, kv)
	added := addCase(t, s, "TC001", "API")

	reloaded := newTestCatalog(t, kv)
	got := reloaded.TestCases()
	require.Len(t, got, 1)
	assert.Equal(t, added.ID, got[0].ID)
	assert.True(t, added.CreatedAt.Equal(got[0].CreatedAt))
	assert.Len(t, reloaded.Modules(), 3)
}

func TestNewCatalogStore_CorruptStateDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, storage.KeyTestCases, "{broken"))
	require.NoError(t, kv.Set(ctx, storage.KeyModules, "[1,2"))

	s := newTestCatalog(t, kv)
	assert.Empty(t, s.TestCases())
	assert.Empty(t, s.Modules(), "a corrupt module list is not replaced by defaults")

	_, ok, _ := kv.Get(ctx, storage.KeyTestCases)
	assert.False(t, ok)
	_, ok, _ = kv.Get(ctx, storage.KeyModules)
	assert.False(t, ok)
}

func TestAddTestCase(t *testing.T) {
	s := newTestCatalog(t, storage.NewMemory())

	a := addCase(t, s, "TC001", "API")
	b := addCase(t, s, "TC002", "API")

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.CreatedAt.Equal(a.UpdatedAt))
	assert.Equal(t, models.PriorityMedium, a.Priority)
	assert.Equal(t, models.StatusDraft, a.Status)
	assert.Len(t, s.TestCases(), 2)
}

func TestAddTestCase_Errors(t *testing.T) {
	s := newTestCatalog(t, storage.NewMemory())
	addCase(t, s, "TC001", "API")
	ctx := context.Background()

	_, err := s.AddTestCase(ctx, models.NewTestCase{TestCaseID: "TC001", Title: "x", Module: "API"})
	assert.ErrorIs(t, err, ErrDuplicateTestCaseID)

	_, err = s.AddTestCase(ctx, models.NewTestCase{TestCaseID: "TC009", Title: "x", Module: "Nope"})
	assert.ErrorIs(t, err, ErrUnknownModule)

	_, err = s.AddTestCase(ctx, models.NewTestCase{Module: "API", Priority: "Urgent"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Missing Test Case ID", "Missing Title", `Invalid Priority "Urgent"`}, verr.Problems)

	assert.Len(t, s.TestCases(), 1)
}

func TestUpdateTestCase(t *testing.T) {
	s := newTestCatalog(t, storage.NewMemory())
	orig := addCase(t, s, "TC001", "API")
	ctx := context.Background()

	title := "Login works"
	status := models.StatusPassed
	tags := []string{"smoke"}
	got, found, err := s.UpdateTestCase(ctx, orig.ID, models.TestCasePatch{Title: &title, Status: &status, Tags: &tags})
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, title, got.Title)
	assert.Equal(t, status, got.Status)
	assert.Equal(t, tags, got.Tags)
	assert.Equal(t, orig.TestCaseID, got.TestCaseID)
	assert.Equal(t, orig.Module, got.Module)
	assert.Equal(t, orig.Priority, got.Priority)
	assert.True(t, got.UpdatedAt.After(orig.UpdatedAt))
	assert.True(t, got.CreatedAt.Equal(orig.CreatedAt))
}

func TestUpdateTestCase_ClockStalled(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewCatalogStore(context.Background(), storage.NewMemory(), zap.NewNop(),
		WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	orig := addCase(t, s, "TC001", "API")

	title := "again"
	got, _, err := s.UpdateTestCase(context.Background(), orig.ID, models.TestCasePatch{Title: &title})
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(orig.UpdatedAt))
}

func TestUpdateTestCase_MissingIsNoop(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestCatalog(t, kv)
	addCase(t, s, "TC001", "API")
	before := s.TestCases()

	title := "x"
	_, found, err := s.UpdateTestCase(context.Background(), "unknown", models.TestCasePatch{Title: &title})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, before, s.TestCases())
}

func TestUpdateTestCase_Conflicts(t *testing.T) {
	s := newTestCatalog(t, storage.NewMemory())
	a := addCase(t, s, "TC001", "API")
	addCase(t, s, "TC002", "API")
	ctx := context.Background()

	dup := "TC002"
	_, found, err := s.UpdateTestCase(ctx, a.ID, models.TestCasePatch{TestCaseID: &dup})
	assert.True(t, found)
	assert.ErrorIs(t, err, ErrDuplicateTestCaseID)

	mod := "Ghost"
	_, _, err = s.UpdateTestCase(ctx, a.ID, models.TestCasePatch{Module: &mod})
	assert.ErrorIs(t, err, ErrUnknownModule)

	empty := " "
	_, _, err = s.UpdateTestCase(ctx, a.ID, models.TestCasePatch{Title: &empty})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	got, _ := s.TestCase(a.ID)
	assert.Equal(t, a, got)
}

func TestDeleteTestCase(t *testing.T) {
	s := newTestCatalog(t, storage.NewMemory())
	a := addCase(t, s, "TC001", "API")
	b := addCase(t, s, "TC002", "API")
	ctx := context.Background()

	found, err := s.DeleteTestCase(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.DeleteTestCase(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, found)

	got := s.TestCases()
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestModules_AddUpdate(t *testing.T) {
	s := newTestCatalog(t, storage.NewMemory())
	ctx := context.Background()

	m, err := s.AddModule(ctx, models.NewModule{Name: " Payments ", Description: "card flows"})
	require.NoError(t, err)
	assert.Equal(t, "Payments", m.Name)

	_, err = s.AddModule(ctx, models.NewModule{Name: "payments"})
	assert.ErrorIs(t, err, ErrDuplicateModule)

	_, err = s.AddModule(ctx, models.NewModule{Name: "  "})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	desc := "new"
	updated, found, err := s.UpdateModule(ctx, m.ID, models.ModulePatch{Description: &desc})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "new", updated.Description)
	assert.True(t, m.CreatedAt.Equal(updated.CreatedAt))

	_, found, err = s.UpdateModule(ctx, "missing", models.ModulePatch{Description: &desc})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpdateModule_RenameCascades(t *testing.T) {
	s := newTestCatalog(t, storage.NewMemory())
	ctx := context.Background()
	inAPI := addCase(t, s, "TC001", "API")
	other := addCase(t, s, "TC002", "Authentication")

	name := "Backend API"
	_, _, err := s.UpdateModule(ctx, moduleID(t, s, "API"), models.ModulePatch{Name: &name})
	require.NoError(t, err)

	got, _ := s.TestCase(inAPI.ID)
	assert.Equal(t, "Backend API", got.Module)
	assert.True(t, got.UpdatedAt.After(inAPI.UpdatedAt))

	untouched, _ := s.TestCase(other.ID)
	assert.Equal(t, other, untouched)

	taken := "authentication"
	_, _, err = s.UpdateModule(ctx, moduleID(t, s, "Backend API"), models.ModulePatch{Name: &taken})
	assert.ErrorIs(t, err, ErrDuplicateModule)
}

func TestDeleteModule_Cascades(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestCatalog(t, kv)
	ctx := context.Background()
	addCase(t, s, "TC001", "API")
	addCase(t, s, "TC002", "API")
	keep := addCase(t, s, "TC003", "Authentication")

	removed, found, err := s.DeleteModule(ctx, moduleID(t, s, "API"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, removed)

	got := s.TestCases()
	require.Len(t, got, 1)
	assert.Equal(t, keep.ID, got[0].ID)
	assert.Len(t, s.Modules(), 2)

	reloaded := newTestCatalog(t, kv)
	assert.Len(t, reloaded.TestCases(), 1)
	assert.Len(t, reloaded.Modules(), 2)

	_, found, err = s.DeleteModule(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestQueryState(t *testing.T) {
	s := newTestCatalog(t, storage.NewMemory())
	addCase(t, s, "TC001", "API")
	addCase(t, s, "TC002", "Authentication")

	assert.Equal(t, All, s.SelectedModule())
	assert.Len(t, s.Visible(Filter{}), 2)

	s.SetSelectedModule("API")
	visible := s.Visible(Filter{Status: All, Priority: All, CreatedBy: All})
	require.Len(t, visible, 1)
	assert.Equal(t, "TC001", visible[0].TestCaseID)

	s.SetSelectedModule("")
	s.SetSearchTerm("tc002")
	visible = s.Visible(Filter{})
	require.Len(t, visible, 1)
	assert.Equal(t, "TC002", visible[0].TestCaseID)

	assert.Empty(t, s.Visible(Filter{Status: string(models.StatusPassed)}))
}

// failingKV fails every write after the first n.
type failingKV struct {
	*storage.Memory
	allowed int
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.allowed <= 0 {
		return errors.New("disk full")
	}
	f.allowed--
	return f.Memory.Set(ctx, key, value)
}

func TestAddTestCase_PersistFailureKeepsState(t *testing.T) {
	kv := &failingKV{Memory: storage.NewMemory(), allowed: 1}
	s := newTestCatalog(t, kv)

	_, err := s.AddTestCase(context.Background(), models.NewTestCase{TestCaseID: "TC001", Title: "x", Module: "API"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save testCases")
	assert.Empty(t, s.TestCases())
}

// keyFailingKV fails every write to one key.
type keyFailingKV struct {
	*storage.Memory
	key string
}

func (f *keyFailingKV) Set(ctx context.Context, key, value string) error {
	if key == f.key {
		return errors.New("disk full")
	}
	return f.Memory.Set(ctx, key, value)
}

func TestUpdateModule_TestCaseWriteFailureKeepsModule(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{Memory: storage.NewMemory(), allowed: 2}
	s := newTestCatalog(t, kv)
	tc := addCase(t, s, "TC001", "API")

	name := "Backend API"
	_, found, err := s.UpdateModule(ctx, moduleID(t, s, "API"), models.ModulePatch{Name: &name})
	require.Error(t, err)
	assert.True(t, found)
	assert.Contains(t, err.Error(), "save testCases")

	moduleID(t, s, "API")
	got, _ := s.TestCase(tc.ID)
	assert.Equal(t, "API", got.Module)

	reloaded := newTestCatalog(t, kv.Memory)
	moduleID(t, reloaded, "API")
	assert.Equal(t, "API", reloaded.TestCases()[0].Module)
}

func TestUpdateModule_ModuleWriteFailureRestoresTestCases(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newTestCatalog(t, mem)
	tc := addCase(t, s, "TC001", "API")
	id := moduleID(t, s, "API")

	kv := &keyFailingKV{Memory: mem, key: storage.KeyModules}
	s.kv = kv

	name := "Backend API"
	_, _, err := s.UpdateModule(ctx, id, models.ModulePatch{Name: &name})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save modules")

	got, _ := s.TestCase(tc.ID)
	assert.Equal(t, tc, got)
	moduleID(t, s, "API")

	reloaded := newTestCatalog(t, mem)
	moduleID(t, reloaded, "API")
	require.Len(t, reloaded.TestCases(), 1)
	assert.Equal(t, "API", reloaded.TestCases()[0].Module)
}

func TestDeleteModule_ModuleWriteFailureRestoresTestCases(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newTestCatalog(t, mem)
	addCase(t, s, "TC001", "API")
	addCase(t, s, "TC002", "Authentication")
	id := moduleID(t, s, "API")

	s.kv = &keyFailingKV{Memory: mem, key: storage.KeyModules}
	_, found, err := s.DeleteModule(ctx, id)
	require.Error(t, err)
	assert.True(t, found)

	assert.Len(t, s.TestCases(), 2)
	assert.Len(t, s.Modules(), 3)

	reloaded := newTestCatalog(t, mem)
	assert.Len(t, reloaded.TestCases(), 2)
	assert.Len(t, reloaded.Modules(), 3)
}

func TestDeleteModule_TestCaseWriteFailureKeepsModule(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newTestCatalog(t, mem)
	addCase(t, s, "TC001", "API")

	s.kv = &keyFailingKV{Memory: mem, key: storage.KeyTestCases}
	_, _, err := s.DeleteModule(ctx, moduleID(t, s, "API"))
	require.Error(t, err)

	assert.Len(t, s.TestCases(), 1)
	moduleID(t, s, "API")
	reloaded := newTestCatalog(t, mem)
	moduleID(t, reloaded, "API")
	assert.Len(t, reloaded.TestCases(), 1)
}

func TestTestCase_ModuleIsTrimmed(t *testing.T) {
	ctx := context.Background()
	s := newTestCatalog(t, storage.NewMemory())

	tc := addCase(t, s, "TC001", " Authentication ")
	assert.Equal(t, "Authentication", tc.Module)
	s.SetSelectedModule("Authentication")
	assert.Len(t, s.Visible(Filter{}), 1)

	module := "\tAPI "
	updated, _, err := s.UpdateTestCase(ctx, tc.ID, models.TestCasePatch{Module: &module})
	require.NoError(t, err)
	assert.Equal(t, "API", updated.Module)

	_, err = s.AddTestCase(ctx, models.NewTestCase{TestCaseID: "TC002", Title: "t", Module: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "Missing Module")
}
