package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/studymate/backend/internal/store"
)

type contextKey string

const identityKey contextKey = "identity"

// identityMiddleware resolves the caller's identity from a Bearer session
// token. Unauthenticated requests proceed as the shared guest identity so the
// app works before sign-in; endpoints that need a real account check for it.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := store.GuestIdentity
		if raw := bearerToken(r); raw != "" {
			subject, err := s.tokens.Parse(raw)
			if err != nil {
				s.writeError(w, http.StatusUnauthorized, "invalid or expired session token")
				return
			}
			identity = subject
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(r *http.Request) string {
	if v, ok := r.Context().Value(identityKey).(string); ok {
		return v
	}
	return store.GuestIdentity
}

// requireUser rejects guests on endpoints tied to a real account.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := identityFrom(r)
	if identity == store.GuestIdentity {
		s.writeError(w, http.StatusUnauthorized, "sign in required")
		return "", false
	}
	return identity, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		// Browsers cannot set headers on websocket upgrades; allow the
		// token as a query parameter there.
		return r.URL.Query().Get("token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
