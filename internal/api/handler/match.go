package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chiptourney/internal/api/request"
	"github.com/mcoot/chiptourney/internal/api/response"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/match"
	"github.com/mcoot/chiptourney/internal/services/queue"
	"github.com/mcoot/chiptourney/internal/services/roster"
)

// MatchHandler handles assignment and match lifecycle endpoints
type MatchHandler struct {
	roster  *roster.Service
	queue   *queue.Service
	matches *match.Service
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(roster *roster.Service, queue *queue.Service, matches *match.Service) *MatchHandler {
	return &MatchHandler{
		roster:  roster,
		queue:   queue,
		matches: matches,
	}
}

func matchID(r *http.Request) model.MatchID {
	return model.MatchID(mux.Vars(r)["mid"])
}

// Assign handles POST /api/v1/tournaments/{tid}/assignments.
// Without a count a single match is assigned and an empty pool is an error;
// with a count the batch may stop early.
func (h *MatchHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req request.AssignRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	tid := tournamentID(r)
	cfg, err := h.roster.ChipConfig(r.Context(), tid)
	if err != nil {
		WriteError(w, err)
		return
	}

	if req.Count == nil {
		a, err := h.queue.AssignNext(r.Context(), tid, cfg)
		if err != nil {
			WriteError(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, response.AssignmentsFromService([]queue.Assignment{*a}))
		return
	}

	assignments, err := h.queue.AssignBatch(r.Context(), tid, cfg, *req.Count)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.AssignmentsFromService(assignments))
}

// List handles GET /api/v1/tournaments/{tid}/matches
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	tid := tournamentID(r)
	if _, err := h.roster.GetTournament(r.Context(), tid); err != nil {
		WriteError(w, err)
		return
	}

	matches, err := h.matches.ListMatches(r.Context(), tid)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.MatchList{Matches: make([]response.Match, len(matches))}
	for i, m := range matches {
		resp.Matches[i] = response.MatchFromModel(m)
	}
	response.JSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/tournaments/{tid}/matches/{mid}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.matches.GetMatch(r.Context(), tournamentID(r), matchID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Start handles POST /api/v1/tournaments/{tid}/matches/{mid}/start
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	m, err := h.matches.StartMatch(r.Context(), tournamentID(r), matchID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Complete handles POST /api/v1/tournaments/{tid}/matches/{mid}/complete
func (h *MatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req request.CompleteMatchRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.matches.CompleteMatch(r.Context(), tournamentID(r), matchID(r), model.PlayerID(req.WinnerID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchResultFromService(result))
}

// Cancel handles POST /api/v1/tournaments/{tid}/matches/{mid}/cancel
func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	m, err := h.matches.CancelMatch(r.Context(), tournamentID(r), matchID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}
