package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/report"
)

// TeamService defines the team directory operations required by the TeamHandler.
type TeamService interface {
	List() []models.TeamUser
	Get(id string) (models.TeamUser, bool)
	Add(ctx context.Context, in models.NewUser) (models.TeamUser, error)
	Update(ctx context.Context, id string, patch models.TeamUserPatch) (models.TeamUser, bool, error)
	ToggleActive(ctx context.Context, id string) (models.TeamUser, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// TestCaseLister yields the test cases used for per-user statistics.
type TestCaseLister interface {
	TestCases() []models.TestCase
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) (int, error)
}

// TeamHandler serves team management. Every route is admin only.
// Sessions, when set, is told about accounts that lose access or change role.
type TeamHandler struct {
	Team     TeamService
	Catalog  TestCaseLister
	Sessions SessionRevoker
	Log      *zap.Logger
}

// MemberView is an account with the tally of the test cases it created.
type MemberView struct {
	models.TeamUser
	Stats report.StatusCounts `json:"stats"`
}

// TeamResponse is the body of GET /api/team.
type TeamResponse struct {
	Users []MemberView     `json:"users"`
	Stats report.TeamStats `json:"stats"`
}

// List handles GET /api/team.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	users := h.Team.List()
	tcs := h.Catalog.TestCases()
	views := make([]MemberView, len(users))
	for i, u := range users {
		views[i] = MemberView{TeamUser: u, Stats: report.UserStats(tcs, u.Username)}
	}
	writeJSON(w, http.StatusOK, TeamResponse{Users: views, Stats: report.CountTeam(users)})
}

// Create handles POST /api/team.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.NewUser
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.Team.Add(r.Context(), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Update handles PATCH /api/team/{id}.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.TeamUserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	id := chi.URLParam(r, "id")
	prev, _ := h.Team.Get(id)
	u, found, err := h.Team.Update(r.Context(), id, patch)
	if err == nil && found && u.Role != prev.Role && !h.revoke(w, r, id) {
		return
	}
	h.writeUser(w, u, found, err)
}

// Toggle handles POST /api/team/{id}/toggle.
func (h *TeamHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, found, err := h.Team.ToggleActive(r.Context(), id)
	if err == nil && found && !u.IsActive && !h.revoke(w, r, id) {
		return
	}
	h.writeUser(w, u, found, err)
}

// Delete handles DELETE /api/team/{id}. The test cases of the account are
// kept and their count is reported.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, ok := h.Team.Get(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}
	found, err := h.Team.Delete(r.Context(), id)
	switch {
	case err != nil:
		writeError(w, h.Log, err)
	case !found:
		writeMessage(w, http.StatusNotFound, "user not found")
	default:
		if !h.revoke(w, r, id) {
			return
		}
		kept := report.UserStats(h.Catalog.TestCases(), u.Username).Total
		writeJSON(w, http.StatusOK, map[string]int{"keptTestCases": kept})
	}
}

// revoke ends the sessions of the account, writing the error response and
// reporting false on failure.
func (h *TeamHandler) revoke(w http.ResponseWriter, r *http.Request, id string) bool {
	if h.Sessions == nil {
		return true
	}
	if _, err := h.Sessions.RevokeUser(r.Context(), id); err != nil {
		writeError(w, h.Log, err)
		return false
	}
	return true
}

func (h *TeamHandler) writeUser(w http.ResponseWriter, u models.TeamUser, found bool, err error) {
	switch {
	case err != nil:
		writeError(w, h.Log, err)
	case !found:
		writeMessage(w, http.StatusNotFound, "user not found")
	default:
		writeJSON(w, http.StatusOK, u)
	}
}
