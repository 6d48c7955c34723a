package auth

import (
	"net/http"

	"github.com/orcaflow/orcaflow/internal/platform/httpx"
	"github.com/orcaflow/orcaflow/internal/shared"
	"github.com/orcaflow/orcaflow/internal/users"
)

// Identity is the authenticated actor attached to a request.
type Identity struct {
	UserID string
	Role   users.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == users.RoleAdmin
}

// IdentityFromRequest extracts the actor from the request session.
func IdentityFromRequest(r *http.Request) (Identity, bool) {
	sess := shared.RequestSession(r)
	if sess == nil || sess.User() == "" {
		return Identity{}, false
	}
	return Identity{UserID: sess.User(), Role: users.Role(sess.Role())}, true
}

// RequireUser rejects requests without an authenticated session.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromRequest(r); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from non-admin sessions.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromRequest(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		if !identity.IsAdmin() {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
