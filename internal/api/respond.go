package api

import (
	"encoding/json"
	"errors"
	"net/http"

	errs "team-matcher/pkg/errors"
	"team-matcher/pkg/logging"
)

// ErrorBody is the envelope every failed request gets.
type ErrorBody struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to an HTTP status and envelope code.
func statusFor(err error) (int, string) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest, "invalid_request"
	case errs.KindNotFound:
		return http.StatusNotFound, "not_found"
	case errs.KindBiz:
		return http.StatusUnprocessableEntity, "unprocessable"
	case errs.KindDB:
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// message prefers the kind's own message so wrapped driver errors stay in
// the log; untyped 5xx errors are reduced to the status text.
func message(err error, status int) string {
	var m interface{ Message() string }
	if errors.As(err, &m) {
		return m.Message()
	}
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	s.writeErrorStatus(w, r, status, code, err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Ctx(r.Context()).Error("Request error", err,
			logging.String("path", r.URL.Path), logging.String("kind", errs.KindOf(err).String()))
	}
	writeJSON(w, status, ErrorBody{
		Error:     ErrorDetail{Code: code, Message: message(err, status)},
		RequestID: logging.RequestIDFrom(r.Context()),
	})
}
