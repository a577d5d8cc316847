package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"portfoliotracker/pkg/portfolio"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *portfolio.Core) http.Handler {
	logger := core.Logger()
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", sessionHeader},
		ExposedHeaders:   []string{sessionHeader},
		AllowCredentials: true,
	}))

	h := &handler{core: core}

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)

		r.Get("/api/session", h.getSession)

		// Holdings
		r.Get("/api/holdings", h.getHoldings)
		r.Post("/api/holdings", h.addHolding)
		r.Delete("/api/holdings", h.clearHoldings)
		r.Post("/api/holdings/import", h.importHoldings)
		r.Get("/api/holdings/export", h.exportHoldings)
		r.Post("/api/holdings/refresh", h.refreshPrices)
		r.Delete("/api/holdings/{ticker}", h.removeHolding)

		// Views
		r.Get("/api/summary", h.getSummary)
		r.Get("/api/analytics", h.getAnalytics)
		r.Get("/api/dividends", h.getDividends)
		r.Get("/api/company", h.getCompany)
		r.Get("/api/company/{ticker}", h.getCompany)
		r.Post("/api/view/tab", h.selectTab)
		r.Post("/api/view/ticker", h.selectTicker)
		r.Post("/api/view/period", h.selectPeriod)

		// Accounts
		r.Post("/api/auth/signin", h.signIn)
		r.Post("/api/auth/signup", h.signUp)
		r.Post("/api/auth/signout", h.signOut)
		r.Post("/api/portfolio/save", h.savePortfolio)
		r.Post("/api/portfolio/load", h.loadPortfolio)

		// Operation logs
		r.Get("/api/operation-logs", h.getOperationLogs)
	})

	return r
}

type handler struct {
	core *portfolio.Core
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
