package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/service"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// statusFor maps a service error to its HTTP status and code.  Anything
// unclassified is treated as transient.
func statusFor(err error) (int, service.Code) {
	code := service.CodeOf(err)
	switch code {
	case service.CodeInvalidRequest:
		return http.StatusBadRequest, code
	case service.CodeUIDNotRegistered, service.CodePendingNotFound, service.CodeNotFound:
		return http.StatusNotFound, code
	case service.CodeDecisionInProgress, service.CodeUIDAlreadyRegistered:
		return http.StatusConflict, code
	case service.CodeTooManyTaps:
		return http.StatusTooManyRequests, code
	}
	return http.StatusServiceUnavailable, service.CodeInternal
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, string(code), service.DisplayMessage(err))
}

// decodeJSON reads a strict JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
