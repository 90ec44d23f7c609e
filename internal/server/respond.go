package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/logger"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	// Code is the error kind, e.g. "not_found".
	Code string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindInvalidInput, errs.ErrKindSourceNotFound:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindPartialFailure:
		return http.StatusConflict
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err. 4xx responses carry the error text as the message; 5xx
// responses carry a generic message and the detail only in debug mode.
// data is included as is, e.g. the Completion of a partial failure.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, data any) {
	status := statusFor(err)
	kind := errs.KindOf(err).String()
	body := envelope{Success: false, Data: data, Code: kind}

	if status < http.StatusInternalServerError {
		body.Message = strings.TrimPrefix(err.Error(), "["+kind+"] ")
	} else {
		body.Message = "storage request failed"
		if s.debug {
			body.Error = err.Error()
		}
		logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]interface{}{
			"status": status,
		})
	}
	writeJSON(w, status, body)
}

// badRequest rejects malformed request parameters.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	s.fail(w, r, errs.New(errs.ErrKindInvalidInput, msg), nil)
}
