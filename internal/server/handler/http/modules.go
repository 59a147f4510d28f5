package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/report"
)

// ModuleService defines the catalog operations required by the ModuleHandler.
type ModuleService interface {
	TestCases() []models.TestCase
	Modules() []models.Module
	Module(id string) (models.Module, bool)
	AddModule(ctx context.Context, in models.NewModule) (models.Module, error)
	UpdateModule(ctx context.Context, id string, patch models.ModulePatch) (models.Module, bool, error)
	DeleteModule(ctx context.Context, id string) (int, bool, error)
}

// ModuleHandler serves module management.
type ModuleHandler struct {
	Catalog ModuleService
	Log     *zap.Logger
}

// ModuleView is a module with the status tally of its test cases.
type ModuleView struct {
	models.Module
	Stats report.StatusCounts `json:"stats"`
}

// List handles GET /api/modules.
func (h *ModuleHandler) List(w http.ResponseWriter, r *http.Request) {
	tcs := h.Catalog.TestCases()
	modules := h.Catalog.Modules()
	out := make([]ModuleView, len(modules))
	for i, m := range modules {
		out[i] = ModuleView{Module: m, Stats: report.ModuleCounts(tcs, m.Name)}
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/modules/{id}.
func (h *ModuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.Catalog.Module(chi.URLParam(r, "id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "module not found")
		return
	}
	writeJSON(w, http.StatusOK, ModuleView{Module: m, Stats: report.ModuleCounts(h.Catalog.TestCases(), m.Name)})
}

// Create handles POST /api/modules.
func (h *ModuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.NewModule
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.Catalog.AddModule(r.Context(), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// Update handles PATCH /api/modules/{id}. Renaming carries the test cases along.
func (h *ModuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.ModulePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	m, found, err := h.Catalog.UpdateModule(r.Context(), chi.URLParam(r, "id"), patch)
	switch {
	case err != nil:
		writeError(w, h.Log, err)
	case !found:
		writeMessage(w, http.StatusNotFound, "module not found")
	default:
		writeJSON(w, http.StatusOK, m)
	}
}

// Delete handles DELETE /api/modules/{id}. Its test cases are removed too.
func (h *ModuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, found, err := h.Catalog.DeleteModule(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err != nil:
		writeError(w, h.Log, err)
	case !found:
		writeMessage(w, http.StatusNotFound, "module not found")
	default:
		writeJSON(w, http.StatusOK, map[string]int{"removedTestCases": removed})
	}
}
