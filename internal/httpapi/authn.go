package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kurylys.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// requireAuth resolves the bearer token into a live principal before the
// wrapped handler runs. The user record is re-read on every request, so a
// deactivated account loses access immediately, outstanding tokens or not.
func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "no token provided")
			return
		}
		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, "token verification failed")
			case errors.Is(err, auth.ErrUserNotFound):
				writeError(w, r, http.StatusUnauthorized, "user not found")
			case errors.Is(err, auth.ErrDeactivated):
				writeError(w, r, http.StatusUnauthorized, "account is deactivated")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}
		next(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
