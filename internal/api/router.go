package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/chiptourney/internal/api/handler"
	"github.com/mcoot/chiptourney/internal/api/middleware"
	"github.com/mcoot/chiptourney/internal/api/response"
	basemiddleware "github.com/mcoot/chiptourney/internal/middleware"
	"github.com/mcoot/chiptourney/internal/services/cutoff"
	"github.com/mcoot/chiptourney/internal/services/ledger"
	"github.com/mcoot/chiptourney/internal/services/match"
	"github.com/mcoot/chiptourney/internal/services/queue"
	"github.com/mcoot/chiptourney/internal/services/roster"
	"github.com/mcoot/chiptourney/internal/services/stats"
	"github.com/mcoot/chiptourney/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger   *slog.Logger
	Roster   *roster.Service
	Ledger   *ledger.Service
	Queue    *queue.Service
	Matches  *match.Service
	Cutoff   *cutoff.Service
	Stats    *stats.Service
	Ratings  storage.RatingStore
	Registry *prometheus.Registry // Optional; enables /metrics and request metrics
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	tournamentHandler := handler.NewTournamentHandler(cfg.Roster, cfg.Ledger, cfg.Stats, cfg.Cutoff)
	playerHandler := handler.NewPlayerHandler(cfg.Roster, cfg.Ledger, cfg.Ratings)
	matchHandler := handler.NewMatchHandler(cfg.Roster, cfg.Queue, cfg.Matches)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(basemiddleware.Logging(cfg.Logger))
	api.Use(middleware.RequireJSON)
	if cfg.Registry != nil {
		api.Use(basemiddleware.Metrics(cfg.Registry, routeTemplate))
	}

	// Tournament routes
	api.HandleFunc("/tournaments", tournamentHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/tournaments", tournamentHandler.List).Methods(http.MethodGet)

	t := api.PathPrefix("/tournaments/{tid}").Subrouter()
	t.HandleFunc("", tournamentHandler.Get).Methods(http.MethodGet)
	t.HandleFunc("/standings", tournamentHandler.Standings).Methods(http.MethodGet)
	t.HandleFunc("/stats", tournamentHandler.Stats).Methods(http.MethodGet)
	t.HandleFunc("/reconcile", tournamentHandler.Reconcile).Methods(http.MethodGet)
	t.HandleFunc("/cutoff", tournamentHandler.ApplyCutoff).Methods(http.MethodPost)
	t.HandleFunc("/cutoff", tournamentHandler.GetCutoff).Methods(http.MethodGet)
	t.HandleFunc("/ratings", playerHandler.Ratings).Methods(http.MethodGet)

	// Player routes
	t.HandleFunc("/players", playerHandler.Register).Methods(http.MethodPost)
	t.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	t.HandleFunc("/players/{pid}", playerHandler.Get).Methods(http.MethodGet)
	t.HandleFunc("/players/{pid}/withdraw", playerHandler.Withdraw).Methods(http.MethodPost)
	t.HandleFunc("/players/{pid}/adjustments", playerHandler.Adjust).Methods(http.MethodPost)
	t.HandleFunc("/players/{pid}/awards", playerHandler.Awards).Methods(http.MethodGet)
	t.HandleFunc("/players/{pid}/rating", playerHandler.SetRating).Methods(http.MethodPut)

	// Queue and match routes
	t.HandleFunc("/assignments", matchHandler.Assign).Methods(http.MethodPost)
	t.HandleFunc("/matches", matchHandler.List).Methods(http.MethodGet)
	t.HandleFunc("/matches/{mid}", matchHandler.Get).Methods(http.MethodGet)
	t.HandleFunc("/matches/{mid}/start", matchHandler.Start).Methods(http.MethodPost)
	t.HandleFunc("/matches/{mid}/complete", matchHandler.Complete).Methods(http.MethodPost)
	t.HandleFunc("/matches/{mid}/cancel", matchHandler.Cancel).Methods(http.MethodPost)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}

// routeTemplate labels metrics with the matched route pattern
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}
