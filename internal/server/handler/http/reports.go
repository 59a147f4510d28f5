package http

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/report"
	"github.com/karnan008/QA-Test-Manager/internal/sheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CatalogReader is the read side of the catalog used by reports.
type CatalogReader interface {
	TestCases() []models.TestCase
	Modules() []models.Module
}

// ReportHandler serves the dashboard, summaries, charts and xlsx exports.
type ReportHandler struct {
	Catalog CatalogReader
	Log     *zap.Logger
	// Now dates export file names; nil means time.Now.
	Now func() time.Time
}

// SummaryResponse is the body of GET /api/reports/summary.
type SummaryResponse struct {
	report.Summary
	Creators []string `json:"creators"`
}

// Dashboard handles GET /api/dashboard.
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, report.NewDashboard(h.Catalog.TestCases(), h.Catalog.Modules()))
}

// Summary handles GET /api/reports/summary?module=&createdBy=.
// Creators always lists every creator in the catalog.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	all := h.Catalog.TestCases()
	writeJSON(w, http.StatusOK, SummaryResponse{
		Summary:  report.Summarize(reportFilter(r).Apply(all)),
		Creators: report.Creators(all),
	})
}

// Charts handles GET /api/reports/charts?module=&createdBy=.
func (h *ReportHandler) Charts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, report.NewCharts(report.Summarize(h.filtered(r))))
}

// Export handles GET /api/reports/export?module=&createdBy=.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	tcs := h.filtered(r)
	writeWorkbook(w, h.Log, sheet.FileName(sheet.TestCasesPrefix, h.now()), func(w io.Writer) error {
		return sheet.WriteTestCases(w, tcs)
	})
}

// ExportSummary handles GET /api/reports/export/summary?module=&createdBy=.
func (h *ReportHandler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	s := report.Summarize(h.filtered(r))
	writeWorkbook(w, h.Log, sheet.FileName(sheet.SummaryPrefix, h.now()), func(w io.Writer) error {
		return sheet.WriteSummary(w, s)
	})
}

func (h *ReportHandler) filtered(r *http.Request) []models.TestCase {
	return reportFilter(r).Apply(h.Catalog.TestCases())
}

func (h *ReportHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func reportFilter(r *http.Request) report.Filter {
	return report.Filter{Module: r.URL.Query().Get("module"), CreatedBy: r.URL.Query().Get("createdBy")}
}

// writeWorkbook renders the workbook fully before sending it as an attachment.
func writeWorkbook(w http.ResponseWriter, log *zap.Logger, name string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		writeError(w, log, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
