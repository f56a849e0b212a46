package httpapi

import (
	"context"
	"net/http"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/repo"
)

type userContextKey struct{}

// userFromContext retrieves the authenticated User installed by
// authenticate, used by the HTTP handlers and threaded into the domain
// plugin's CurrentUser callback as the me() builtin's backing source.
func userFromContext(ctx context.Context) (*repo.User, error) {
	u, ok := ctx.Value(userContextKey{}).(*repo.User)
	if !ok {
		return nil, apperr.Unauthorized("no authenticated user in context")
	}
	return u, nil
}

// authenticate validates the Authorization header's Bearer token against
// Users and installs the resolved User into the request context, mapping
// a missing/invalid key to 401 ahead of routing.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Users == nil {
			writeError(w, apperr.Unauthorized("no user repository configured"))
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, apperr.Unauthorized("missing Authorization header"))
			return
		}

		user, err := s.deps.Users.FindByAPIKey(r.Context(), header)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
