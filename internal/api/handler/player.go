package handler

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/mcoot/chiptourney/internal/api/request"
	"github.com/mcoot/chiptourney/internal/api/response"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/ledger"
	"github.com/mcoot/chiptourney/internal/services/roster"
	"github.com/mcoot/chiptourney/internal/storage"
)

// PlayerHandler handles player endpoints within a tournament
type PlayerHandler struct {
	roster  *roster.Service
	ledger  *ledger.Service
	ratings storage.RatingStore
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(roster *roster.Service, ledger *ledger.Service, ratings storage.RatingStore) *PlayerHandler {
	return &PlayerHandler{
		roster:  roster,
		ledger:  ledger,
		ratings: ratings,
	}
}

func playerID(r *http.Request) model.PlayerID {
	return model.PlayerID(mux.Vars(r)["pid"])
}

// Register handles POST /api/v1/tournaments/{tid}/players
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterPlayerRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	p, err := h.roster.RegisterPlayer(r.Context(), tournamentID(r), req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(p))
}

// List handles GET /api/v1/tournaments/{tid}/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	tid := tournamentID(r)
	if _, err := h.roster.GetTournament(r.Context(), tid); err != nil {
		WriteError(w, err)
		return
	}

	players, err := h.roster.ListPlayers(r.Context(), tid)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.PlayerList{Players: make([]response.Player, len(players))}
	for i, p := range players {
		resp.Players[i] = response.PlayerFromModel(p)
	}
	response.JSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/tournaments/{tid}/players/{pid}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.roster.GetPlayer(r.Context(), tournamentID(r), playerID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(p))
}

// Withdraw handles POST /api/v1/tournaments/{tid}/players/{pid}/withdraw
func (h *PlayerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p, err := h.roster.Withdraw(r.Context(), tournamentID(r), playerID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(p))
}

// Adjust handles POST /api/v1/tournaments/{tid}/players/{pid}/adjustments
func (h *PlayerHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req request.AdjustChipsRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	adj, err := h.ledger.AdjustChips(r.Context(), tournamentID(r), playerID(r), req.Delta, req.Reason)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AdjustmentFromService(adj))
}

// Awards handles GET /api/v1/tournaments/{tid}/players/{pid}/awards
func (h *PlayerHandler) Awards(w http.ResponseWriter, r *http.Request) {
	awards, err := h.ledger.Awards(r.Context(), tournamentID(r), playerID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AwardList{Awards: response.AwardsFromModel(awards)})
}

// SetRating handles PUT /api/v1/tournaments/{tid}/players/{pid}/rating
func (h *PlayerHandler) SetRating(w http.ResponseWriter, r *http.Request) {
	var req request.SetRatingRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	tid, pid := tournamentID(r), playerID(r)
	if _, err := h.roster.GetPlayer(r.Context(), tid, pid); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.ratings.SetRating(r.Context(), tid, pid, req.Rating); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Rating{PlayerID: string(pid), Rating: req.Rating})
}

// Ratings handles GET /api/v1/tournaments/{tid}/ratings
func (h *PlayerHandler) Ratings(w http.ResponseWriter, r *http.Request) {
	ratings, err := h.ratings.ListRatings(r.Context(), tournamentID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.RatingList{Ratings: make([]response.Rating, 0, len(ratings))}
	for pid, rating := range ratings {
		resp.Ratings = append(resp.Ratings, response.Rating{PlayerID: string(pid), Rating: rating})
	}
	sort.Slice(resp.Ratings, func(i, j int) bool { return resp.Ratings[i].PlayerID < resp.Ratings[j].PlayerID })
	response.JSON(w, http.StatusOK, resp)
}
