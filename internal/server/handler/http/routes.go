package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/karnan008/QA-Test-Manager/internal/middleware"
)

// Handlers groups the handlers mounted by NewRouter.
type Handlers struct {
	Auth      *AuthHandler
	TestCases *TestCaseHandler
	Modules   *ModuleHandler
	Reports   *ReportHandler
	Team      *TeamHandler
}

// NewRouter constructs and returns an HTTP handler that serves the API
// under /api.
//
// Routes:
//
//	POST   /api/login, /api/register           public
//	POST   /api/logout, GET /api/me            session
//	GET    /api/testcases[/{id}], POST, PATCH, DELETE
//	GET    /api/query, PUT /api/query
//	POST   /api/import (xlsx body), GET /api/import/template
//	GET    /api/modules[/{id}]; POST, PATCH, DELETE admin only
//	GET    /api/dashboard, /api/reports/{summary,charts,export,export/summary}
//	GET    /api/team, POST, PATCH, DELETE, POST /api/team/{id}/toggle   admin only
//
// Middleware chain (applied in order):
//  1. Recoverer: turns panics into 500s
//  2. WithRequestLogging(logger): logs every request
//  3. BearerAuth(auth): on every route but login and register
//  4. AllowContentType: JSON everywhere, xlsx for the import upload
func NewRouter(
	h Handlers,
	auth middleware.Authenticator,
	maxUploadBytes int64,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/login", h.Auth.Login)
			r.Post("/register", h.Auth.Register)
		})

		// Protected group: requires the live session token
		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(auth))

			r.With(
				chiMiddleware.AllowContentType(xlsxContentType, "application/octet-stream"),
				chiMiddleware.RequestSize(maxUploadBytes),
			).Post("/import", h.TestCases.Import)

			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.AllowContentType("application/json"))

				r.Post("/logout", h.Auth.Logout)
				r.Get("/me", h.Auth.Me)

				r.Route("/testcases", func(r chi.Router) {
					r.Get("/", h.TestCases.List)
					r.Post("/", h.TestCases.Create)
					r.Get("/{id}", h.TestCases.Get)
					r.Patch("/{id}", h.TestCases.Update)
					r.Delete("/{id}", h.TestCases.Delete)
				})
				r.Get("/query", h.TestCases.Query)
				r.Put("/query", h.TestCases.SetQuery)
				r.Get("/import/template", h.TestCases.ImportTemplate)

				r.Route("/modules", func(r chi.Router) {
					r.Get("/", h.Modules.List)
					r.Get("/{id}", h.Modules.Get)
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireAdmin)
						r.Post("/", h.Modules.Create)
						r.Patch("/{id}", h.Modules.Update)
						r.Delete("/{id}", h.Modules.Delete)
					})
				})

				r.Get("/dashboard", h.Reports.Dashboard)
				r.Route("/reports", func(r chi.Router) {
					r.Get("/summary", h.Reports.Summary)
					r.Get("/charts", h.Reports.Charts)
					r.Get("/export", h.Reports.Export)
					r.Get("/export/summary", h.Reports.ExportSummary)
				})

				r.Route("/team", func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Get("/", h.Team.List)
					r.Post("/", h.Team.Create)
					r.Patch("/{id}", h.Team.Update)
					r.Post("/{id}/toggle", h.Team.Toggle)
					r.Delete("/{id}", h.Team.Delete)
				})
			})
		})
	})

	return r
}
