package api

import (
	"context"
	"net/http"

	"portfoliotracker/pkg/portfolio"
)

const (
	sessionCookie = "portfolio_session"
	sessionHeader = "X-Session-ID"
)

type sessionKey struct{}

// sessionMiddleware resolves the caller's session from the cookie or the
// X-Session-ID header, starting a new one when neither names a live session.
func (h *handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(sessionHeader)
		if id == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				id = c.Value
			}
		}
		s, created := h.core.Sessions().GetOrCreate(id)
		if created {
			h.core.Logger().Debug("session started", "session", s.ID)
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(sessionHeader, s.ID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
	})
}

func sessionFrom(r *http.Request) *portfolio.SessionState {
	s, _ := r.Context().Value(sessionKey{}).(*portfolio.SessionState)
	return s
}
