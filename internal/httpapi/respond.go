package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bozorapp/bozor/auth"
	"github.com/bozorapp/bozor/store"
)

// errorBody is the uniform failure envelope.
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{StatusCode: status, Message: message})
}

// writeAuthError maps engine sentinels onto HTTP statuses. Unknown
// errors become 500 without leaking their text.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrRefreshInvalid):
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, auth.ErrResetInvalid):
		writeError(w, http.StatusUnauthorized, "invalid or expired reset token")
	case errors.Is(err, auth.ErrPasswordPolicy):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, auth.ErrStoreUnavailable),
		errors.Is(err, auth.ErrCacheUnavailable),
		errors.Is(err, auth.ErrMailUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already registered")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody rejects oversized or malformed JSON request bodies.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
