package http

import (
	"net/http"
	"strings"

	"billed/internal/billing"
	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
)

const sessionCookie = "billed_session"

// sessionToken reads a bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireUser puts the token's session in the request context or answers 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := sessionToken(r)
		if raw == "" || s.tokens == nil {
			s.unauthorized(w, r, "missing session token")
			return
		}
		acc, err := s.tokens.Parse(raw)
		if err != nil {
			s.unauthorized(w, r, err.Error())
			return
		}
		user, err := session.CurrentUser(acc)
		if err != nil {
			s.unauthorized(w, r, err.Error())
			return
		}

		ctx := session.WithAccessor(r.Context(), acc)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldEmail, user.Email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	log.FromContext(r.Context()).WithComponent(log.ComponentSession).InfoContext(r.Context(), "Unauthenticated request",
		log.FieldPath, r.URL.Path,
		"reason", reason)
	w.Header().Set("WWW-Authenticate", `Bearer realm="billed"`)
	ErrorResponse(http.StatusUnauthorized, "Session invalide ou expirée.").Write(w)
}

// currentUser is only called behind requireUser.
func currentUser(r *http.Request) core.User {
	u, _ := session.UserFromContext(r.Context())
	return u
}

// handleSession turns a token link into a session cookie.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("token"))
	if raw == "" || s.tokens == nil {
		s.unauthorized(w, r, "missing session token")
		return
	}
	if _, err := s.tokens.Parse(raw); err != nil {
		s.unauthorized(w, r, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    raw,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, billing.PathBills, http.StatusSeeOther)
}
