package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/service"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps store errors onto status codes. Unknown errors are logged
// and reported as 500 without details.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Problems: verr.Problems})
	case errors.Is(err, service.ErrUnknownModule):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicateTestCaseID),
		errors.Is(err, service.ErrDuplicateModule),
		errors.Is(err, service.ErrEmailTaken):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}
