package middleware

import (
	"errors"
	"net/http"

	"p9e.in/energydesk/pkg/authz"
)

// RequireAccess rejects the request unless the caller passes the
// authorization gate for action: 401 without an identity, 403 for a write
// without the admin role.
func RequireAccess(action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authz.Check(GetIdentity(r), action); err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if errors.Is(err, authz.ErrForbidden) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Forbidden: Not an admin"}`))
		return
	}
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
