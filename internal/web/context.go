package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

// userKeyParam is the route parameter naming the acting user.
const userKeyParam = "userKey"

// withUser validates the {userKey} route parameter and adds it to the
// request context for logging.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, userKeyParam)
		if err := core.ValidateUserKey(key); err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		ctx := core.ContextWithUserKey(r.Context(), key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userKey returns the validated user key of a request routed through withUser.
func userKey(r *http.Request) string {
	return core.UserKeyFromContext(r.Context())
}
