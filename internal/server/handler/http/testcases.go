package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/middleware"
	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/service"
	"github.com/karnan008/QA-Test-Manager/internal/sheet"
)

// TestCaseService defines the catalog operations required by the TestCaseHandler.
type TestCaseService interface {
	TestCases() []models.TestCase
	TestCase(id string) (models.TestCase, bool)
	AddTestCase(ctx context.Context, in models.NewTestCase) (models.TestCase, error)
	UpdateTestCase(ctx context.Context, id string, patch models.TestCasePatch) (models.TestCase, bool, error)
	DeleteTestCase(ctx context.Context, id string) (bool, error)
	ImportTestCases(ctx context.Context, records []models.ImportRecord) (models.ImportResult, error)

	SearchTerm() string
	SetSearchTerm(term string)
	SelectedModule() string
	SetSelectedModule(module string)
	Visible(extra service.Filter) []models.TestCase
}

// TestCaseHandler serves test case CRUD, queries and spreadsheet import.
type TestCaseHandler struct {
	Catalog TestCaseService
	Log     *zap.Logger
}

// sortParams reads "sort" and "order" from the query string.
func sortParams(w http.ResponseWriter, r *http.Request) (service.SortColumn, service.SortDirection, bool) {
	col, ok := service.ParseSortColumn(r.URL.Query().Get("sort"))
	if !ok {
		writeMessage(w, http.StatusBadRequest, "unknown sort column")
		return "", "", false
	}
	return col, service.ParseSortDirection(r.URL.Query().Get("order")), true
}

// List handles GET /api/testcases with optional search, module, status,
// priority, createdBy, sort and order parameters.
func (h *TestCaseHandler) List(w http.ResponseWriter, r *http.Request) {
	col, dir, ok := sortParams(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := service.Filter{
		Search:    q.Get("search"),
		Module:    q.Get("module"),
		Status:    q.Get("status"),
		Priority:  q.Get("priority"),
		CreatedBy: q.Get("createdBy"),
	}
	tcs := service.SortTestCases(service.FilterTestCases(h.Catalog.TestCases(), f), col, dir)
	writeJSON(w, http.StatusOK, tcs)
}

// Get handles GET /api/testcases/{id}.
func (h *TestCaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.Catalog.TestCase(chi.URLParam(r, "id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "test case not found")
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

// Create handles POST /api/testcases. The creator is the authenticated user.
func (h *TestCaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.NewTestCase
	if !decodeJSON(w, r, &in) {
		return
	}
	user, _ := middleware.GetUserFromContext(r.Context())
	in.CreatedBy = user.Username

	tc, err := h.Catalog.AddTestCase(r.Context(), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tc)
}

// Update handles PATCH /api/testcases/{id}. Members may only edit their own test cases.
func (h *TestCaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	var patch models.TestCasePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	tc, found, err := h.Catalog.UpdateTestCase(r.Context(), id, patch)
	switch {
	case err != nil:
		writeError(w, h.Log, err)
	case !found:
		writeMessage(w, http.StatusNotFound, "test case not found")
	default:
		writeJSON(w, http.StatusOK, tc)
	}
}

// Delete handles DELETE /api/testcases/{id}.
func (h *TestCaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	found, err := h.Catalog.DeleteTestCase(r.Context(), id)
	switch {
	case err != nil:
		writeError(w, h.Log, err)
	case !found:
		writeMessage(w, http.StatusNotFound, "test case not found")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *TestCaseHandler) authorize(w http.ResponseWriter, r *http.Request, id string) bool {
	tc, ok := h.Catalog.TestCase(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "test case not found")
		return false
	}
	user, _ := middleware.GetUserFromContext(r.Context())
	if !service.CanEdit(user, tc) {
		writeMessage(w, http.StatusForbidden, "only the creator or an administrator can change this test case")
		return false
	}
	return true
}

// QueryState is the persisted search term and module selection.
type QueryState struct {
	SearchTerm     string `json:"searchTerm"`
	SelectedModule string `json:"selectedModule"`
}

// QueryResponse pairs the query state with the test cases it selects.
type QueryResponse struct {
	QueryState
	TestCases []models.TestCase `json:"testCases"`
}

// Query handles GET /api/query: the test cases visible under the stored
// search term and module, narrowed by the status, priority and createdBy parameters.
func (h *TestCaseHandler) Query(w http.ResponseWriter, r *http.Request) {
	col, dir, ok := sortParams(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	visible := h.Catalog.Visible(service.Filter{
		Status:    q.Get("status"),
		Priority:  q.Get("priority"),
		CreatedBy: q.Get("createdBy"),
	})
	writeJSON(w, http.StatusOK, QueryResponse{
		QueryState: QueryState{SearchTerm: h.Catalog.SearchTerm(), SelectedModule: h.Catalog.SelectedModule()},
		TestCases:  service.SortTestCases(visible, col, dir),
	})
}

// SetQuery handles PUT /api/query.
func (h *TestCaseHandler) SetQuery(w http.ResponseWriter, r *http.Request) {
	var in QueryState
	if !decodeJSON(w, r, &in) {
		return
	}
	h.Catalog.SetSearchTerm(in.SearchTerm)
	h.Catalog.SetSelectedModule(in.SelectedModule)
	writeJSON(w, http.StatusOK, QueryState{SearchTerm: h.Catalog.SearchTerm(), SelectedModule: h.Catalog.SelectedModule()})
}

// Import handles POST /api/import with an xlsx workbook as the body. Any
// format or row problem rejects the whole upload before the catalog changes.
func (h *TestCaseHandler) Import(w http.ResponseWriter, r *http.Request) {
	rows, err := sheet.ParseImport(r.Body)
	var missing *sheet.MissingColumnsError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, sheet.ErrEmptyFile):
		writeMessage(w, http.StatusBadRequest, "The Excel file is empty")
		return
	case errors.As(err, &missing):
		writeMessage(w, http.StatusBadRequest, missing.Error())
		return
	case errors.As(err, &tooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	case err != nil:
		h.Log.Info("unreadable import", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Error processing Excel file. Please check the format and try again.")
		return
	}

	if problems := sheet.Validate(rows); len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Problems: problems})
		return
	}

	res, err := h.Catalog.ImportTestCases(r.Context(), sheet.Records(rows))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ImportTemplate handles GET /api/import/template.
func (h *TestCaseHandler) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	writeWorkbook(w, h.Log, sheet.TemplateFileName, sheet.WriteTemplate)
}
