package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/securecloud/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// errorStatus maps a service error to a status code and a message that is
// safe to show to the client.
func errorStatus(err error) (int, errorResponse) {
	var dup *common.DuplicateError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &dup):
		return http.StatusConflict, errorResponse{Error: dup.Error(), Field: dup.Field}
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, errorResponse{Error: "already exists"}
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials"}
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "authentication required"}
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden"}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, common.ErrVaultUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: "encryption is not configured"}
	case errors.Is(err, common.ErrIntegrity):
		return http.StatusInternalServerError, errorResponse{Error: "content integrity check failed"}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{Error: "upload too large"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

// fail writes the error response for err. Server-side failures are logged
// with the full error; the client only sees the mapped message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
