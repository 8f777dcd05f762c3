package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobagg/internal/domain"
)

type APIError struct {
	Error struct {
		Code      string   `json:"code"`
		Message   string   `json:"message"`
		Fields    []string `json:"fields,omitempty"`
		RequestID string   `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeRequestError answers an invalid scrape request with the offending
// fields listed.
func writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var e APIError
	e.Error.Code = "invalid_request"
	e.Error.Message = err.Error()
	e.Error.RequestID = RequestIDFrom(r.Context())
	for _, ve := range validationErrors(err) {
		e.Error.Fields = append(e.Error.Fields, ve.Field)
	}
	WriteJSON(w, http.StatusBadRequest, e)
}

func validationErrors(err error) []*domain.ValidationError {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*domain.ValidationError
		for _, e := range j.Unwrap() {
			out = append(out, validationErrors(e)...)
		}
		return out
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return []*domain.ValidationError{ve}
	}
	return nil
}

func isValidation(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}
