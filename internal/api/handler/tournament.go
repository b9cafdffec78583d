package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chiptourney/internal/api/request"
	"github.com/mcoot/chiptourney/internal/api/response"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/cutoff"
	"github.com/mcoot/chiptourney/internal/services/ledger"
	"github.com/mcoot/chiptourney/internal/services/roster"
	"github.com/mcoot/chiptourney/internal/services/stats"
)

// TournamentHandler handles tournament-level endpoints
type TournamentHandler struct {
	roster *roster.Service
	ledger *ledger.Service
	stats  *stats.Service
	cutoff *cutoff.Service
}

// NewTournamentHandler creates a new tournament handler
func NewTournamentHandler(roster *roster.Service, ledger *ledger.Service, stats *stats.Service, cutoff *cutoff.Service) *TournamentHandler {
	return &TournamentHandler{
		roster: roster,
		ledger: ledger,
		stats:  stats,
		cutoff: cutoff,
	}
}

func tournamentID(r *http.Request) model.TournamentID {
	return model.TournamentID(mux.Vars(r)["tid"])
}

// Create handles POST /api/v1/tournaments
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	req := request.CreateTournamentRequest{Config: request.ChipConfigFromModel(model.DefaultChipConfig())}
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	t, err := h.roster.CreateTournament(r.Context(), req.Name, req.Config.ToModel())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.TournamentFromModel(t))
}

// List handles GET /api/v1/tournaments
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.roster.ListTournaments(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.TournamentList{Tournaments: make([]response.Tournament, len(tournaments))}
	for i, t := range tournaments {
		resp.Tournaments[i] = response.TournamentFromModel(t)
	}
	response.JSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/tournaments/{tid}
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.roster.GetTournament(r.Context(), tournamentID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TournamentFromModel(t))
}

// Standings handles GET /api/v1/tournaments/{tid}/standings
func (h *TournamentHandler) Standings(w http.ResponseWriter, r *http.Request) {
	tid := tournamentID(r)
	if _, err := h.roster.GetTournament(r.Context(), tid); err != nil {
		WriteError(w, err)
		return
	}

	standings, err := h.ledger.Standings(r.Context(), tid)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StandingsFromService(standings))
}

// Stats handles GET /api/v1/tournaments/{tid}/stats
func (h *TournamentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	qs, err := h.stats.GetQueueStats(r.Context(), tournamentID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.QueueStatsFromService(qs))
}

// Reconcile handles GET /api/v1/tournaments/{tid}/reconcile
func (h *TournamentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := h.ledger.Reconcile(r.Context(), tournamentID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ReconcileFromService(discrepancies))
}

// ApplyCutoff handles POST /api/v1/tournaments/{tid}/cutoff.
// The tournament's stored config is used.
func (h *TournamentHandler) ApplyCutoff(w http.ResponseWriter, r *http.Request) {
	tid := tournamentID(r)
	cfg, err := h.roster.ChipConfig(r.Context(), tid)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.cutoff.ApplyCutoff(r.Context(), tid, cfg)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CutoffFromModel(result))
}

// GetCutoff handles GET /api/v1/tournaments/{tid}/cutoff
func (h *TournamentHandler) GetCutoff(w http.ResponseWriter, r *http.Request) {
	result, err := h.cutoff.GetCutoff(r.Context(), tournamentID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CutoffFromModel(result))
}
