// responses.go

package core

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Envelope is the success body: {"data": ...}, optionally with the
// requester's own serialized form under "user" (create responses).
type Envelope struct {
	Data any `json:"data"`
	User any `json:"user,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Data: data})
}

func OKWithUser(w http.ResponseWriter, data, user any) {
	writeJSON(w, http.StatusOK, Envelope{Data: data, User: user})
}

func BadRequest(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Bad request"
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Message: message})
}

func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authorization failed"
	}
	writeJSON(w, http.StatusUnauthorized, errorResponse{Message: message})
}

func Forbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Forbidden"
	}
	writeJSON(w, http.StatusForbidden, errorResponse{Message: message})
}

func NotFound(w http.ResponseWriter, what string) {
	message := "Not found"
	if what != "" {
		message = what + " not found"
	}
	writeJSON(w, http.StatusNotFound, errorResponse{Message: message})
}

func InternalServerError(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Message: "Server error",
	})
}

// RespondError translates a sentinel-wrapped error into exactly one
// terminal HTTP response.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		Unauthorized(w, "")
	case errors.Is(err, ErrForbidden):
		Forbidden(w, "")
	case errors.Is(err, ErrNotFound):
		NotFound(w, "")
	case IsBadRequest(err):
		BadRequest(w, badRequestMessage(err))
	default:
		InternalServerError(w, err)
	}
}

// badRequestMessage strips the sentinel suffix from a wrapped message so the
// client sees "missing mandatory field: email" rather than the internal
// "...: validation failed" chain.
func badRequestMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrInvalidInput, ErrDuplicateKey} {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	if msg == "" {
		return "Bad request"
	}
	return msg
}

func FormatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" is invalid ("+fe.Tag()+")")
	}
	return strings.Join(parts, ", ")
}
