package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"kurylys.org/internal/auth"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeDenied is writeError plus the decision context (required versus
// actual), mirrored verbatim into the 403 payload.
func writeDenied(w http.ResponseWriter, r *http.Request, msg string, details map[string]any) {
	payload := map[string]any{
		"error": msg,
	}
	for k, v := range details {
		payload[k] = v
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, http.StatusForbidden, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min || val > max {
		return 0, errors.New("value must be an integer between " +
			strconv.Itoa(min) + " and " + strconv.Itoa(max))
	}
	return val, nil
}

// handleAuthError maps an auth sentinel to its HTTP status. The login
// ladder failures keep their distinct messages; clients render guidance
// off them.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, r, http.StatusUnauthorized, "user not found")
	case errors.Is(err, auth.ErrPendingApproval):
		writeError(w, r, http.StatusUnauthorized, "account is pending approval")
	case errors.Is(err, auth.ErrRejected):
		writeError(w, r, http.StatusUnauthorized, "account application was rejected")
	case errors.Is(err, auth.ErrDeactivated):
		writeError(w, r, http.StatusUnauthorized, "account is deactivated or suspended")
	case errors.Is(err, auth.ErrWrongPassword):
		writeError(w, r, http.StatusUnauthorized, "wrong password")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "token verification failed")
	case errors.Is(err, auth.ErrRegistrationDisabled):
		writeError(w, r, http.StatusForbidden, "public registration is disabled")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
