package response

import (
	"time"

	"github.com/mcoot/chiptourney/internal/api/request"
	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/ledger"
	"github.com/mcoot/chiptourney/internal/services/match"
	"github.com/mcoot/chiptourney/internal/services/queue"
	"github.com/mcoot/chiptourney/internal/services/stats"
)

// Tournament represents a tournament in API responses
type Tournament struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Phase     string             `json:"phase"`
	Config    request.ChipConfig `json:"config"`
	Cutoff    *CutoffResult      `json:"cutoff,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// TournamentFromModel converts a model.Tournament
func TournamentFromModel(t *model.Tournament) Tournament {
	resp := Tournament{
		ID:        string(t.ID),
		Name:      t.Name,
		Phase:     string(t.Phase),
		Config:    request.ChipConfigFromModel(t.Config),
		CreatedAt: t.CreatedAt,
	}
	if t.Cutoff != nil {
		c := CutoffFromModel(t.Cutoff)
		resp.Cutoff = &c
	}
	return resp
}

// TournamentList wraps a list of tournaments
type TournamentList struct {
	Tournaments []Tournament `json:"tournaments"`
}

// Player represents a player in API responses
type Player struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	ChipCount      int       `json:"chip_count"`
	MatchesPlayed  int       `json:"matches_played"`
	Status         string    `json:"status"`
	AvailableSince time.Time `json:"available_since"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:             string(p.ID),
		DisplayName:    p.DisplayName,
		ChipCount:      p.ChipCount,
		MatchesPlayed:  p.MatchesPlayed,
		Status:         string(p.Status),
		AvailableSince: p.AvailableSince,
	}
}

// PlayerList wraps a list of players
type PlayerList struct {
	Players []Player `json:"players"`
}

// Match represents a match in API responses
type Match struct {
	ID          string     `json:"id"`
	PlayerA     string     `json:"player_a"`
	PlayerB     string     `json:"player_b"`
	State       string     `json:"state"`
	Winner      string     `json:"winner,omitempty"`
	Round       int        `json:"round"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MatchFromModel converts a model.Match
func MatchFromModel(m *model.Match) Match {
	return Match{
		ID:          string(m.ID),
		PlayerA:     string(m.PlayerA),
		PlayerB:     string(m.PlayerB),
		State:       string(m.State),
		Winner:      string(m.Winner),
		Round:       m.Round,
		CreatedAt:   m.CreatedAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}

// MatchList wraps a list of matches
type MatchList struct {
	Matches []Match `json:"matches"`
}

// MatchResult is the response for a completed match
type MatchResult struct {
	Match  Match   `json:"match"`
	Winner Player  `json:"winner"`
	Loser  Player  `json:"loser"`
	Awards []Award `json:"awards"`
}

// MatchResultFromService converts a match.Result
func MatchResultFromService(r *match.Result) MatchResult {
	return MatchResult{
		Match:  MatchFromModel(r.Match),
		Winner: PlayerFromModel(r.Winner),
		Loser:  PlayerFromModel(r.Loser),
		Awards: AwardsFromModel(r.Awards),
	}
}

// Assignment is one match created by the queue
type Assignment struct {
	MatchID   string `json:"match_id"`
	PlayerAID string `json:"player_a_id"`
	PlayerBID string `json:"player_b_id"`
	Round     int    `json:"round"`
}

// AssignmentList is the response for the assignment endpoint
type AssignmentList struct {
	Assignments []Assignment `json:"assignments"`
}

// AssignmentsFromService converts queue assignments
func AssignmentsFromService(as []queue.Assignment) AssignmentList {
	list := AssignmentList{Assignments: make([]Assignment, len(as))}
	for i, a := range as {
		list.Assignments[i] = Assignment{
			MatchID:   string(a.MatchID),
			PlayerAID: string(a.PlayerAID),
			PlayerBID: string(a.PlayerBID),
			Round:     a.Round,
		}
	}
	return list
}

// Award represents one ledger entry
type Award struct {
	ID              string    `json:"id"`
	MatchID         string    `json:"match_id,omitempty"`
	PlayerID        string    `json:"player_id"`
	Amount          int       `json:"amount"`
	RequestedAmount int       `json:"requested_amount"`
	Reason          string    `json:"reason"`
	Manual          bool      `json:"manual"`
	Timestamp       time.Time `json:"timestamp"`
}

// AwardFromModel converts a model.ChipAward
func AwardFromModel(a *model.ChipAward) Award {
	return Award{
		ID:              string(a.ID),
		MatchID:         string(a.MatchID),
		PlayerID:        string(a.PlayerID),
		Amount:          a.Amount,
		RequestedAmount: a.RequestedAmount,
		Reason:          a.Reason,
		Manual:          a.Manual,
		Timestamp:       a.Timestamp,
	}
}

// AwardsFromModel converts a list of awards
func AwardsFromModel(as []*model.ChipAward) []Award {
	awards := make([]Award, len(as))
	for i, a := range as {
		awards[i] = AwardFromModel(a)
	}
	return awards
}

// AwardList wraps a player's audit trail
type AwardList struct {
	Awards []Award `json:"awards"`
}

// Adjustment is the response for a manual chip adjustment
type Adjustment struct {
	PlayerID      string `json:"player_id"`
	NewChipCount  int    `json:"new_chip_count"`
	MatchesPlayed int    `json:"matches_played"`
	Award         Award  `json:"award"`
}

// AdjustmentFromService converts a ledger.Adjustment
func AdjustmentFromService(a *ledger.Adjustment) Adjustment {
	return Adjustment{
		PlayerID:      string(a.PlayerID),
		NewChipCount:  a.NewChipCount,
		MatchesPlayed: a.MatchesPlayed,
		Award:         AwardFromModel(a.Award),
	}
}

// StandingsEntry is one ranked row
type StandingsEntry struct {
	PlayerID      string `json:"player_id"`
	DisplayName   string `json:"display_name"`
	ChipCount     int    `json:"chip_count"`
	MatchesPlayed int    `json:"matches_played"`
	Status        string `json:"status"`
	Rank          int    `json:"rank"`
}

// StandingsStats summarizes the field
type StandingsStats struct {
	Count                int     `json:"count"`
	AverageChips         float64 `json:"average_chips"`
	MinChips             int     `json:"min_chips"`
	MaxChips             int     `json:"max_chips"`
	AverageMatchesPlayed float64 `json:"average_matches_played"`
}

// Standings is the ranked field with stats
type Standings struct {
	Entries []StandingsEntry `json:"entries"`
	Stats   StandingsStats   `json:"stats"`
}

// StandingsFromService converts ledger standings
func StandingsFromService(s *ledger.Standings) Standings {
	resp := Standings{
		Entries: make([]StandingsEntry, len(s.Entries)),
		Stats: StandingsStats{
			Count:                s.Stats.Count,
			AverageChips:         s.Stats.AverageChips,
			MinChips:             s.Stats.MinChips,
			MaxChips:             s.Stats.MaxChips,
			AverageMatchesPlayed: s.Stats.AverageMatchesPlayed,
		},
	}
	for i, e := range s.Entries {
		resp.Entries[i] = StandingsEntry{
			PlayerID:      string(e.PlayerID),
			DisplayName:   e.DisplayName,
			ChipCount:     e.ChipCount,
			MatchesPlayed: e.MatchesPlayed,
			Status:        string(e.Status),
			Rank:          e.Rank,
		}
	}
	return resp
}

// QueueStats is the pool rollup
type QueueStats struct {
	Phase                 string         `json:"phase"`
	AvailableCount        int            `json:"available_count"`
	ActiveMatchesCount    int            `json:"active_matches_count"`
	CompletedMatchesCount int            `json:"completed_matches_count"`
	PlayersByStatus       map[string]int `json:"players_by_status"`
	MatchesByState        map[string]int `json:"matches_by_state"`
}

// QueueStatsFromService converts stats.QueueStats
func QueueStatsFromService(qs *stats.QueueStats) QueueStats {
	resp := QueueStats{
		Phase:                 string(qs.Phase),
		AvailableCount:        qs.AvailableCount,
		ActiveMatchesCount:    qs.ActiveMatchesCount,
		CompletedMatchesCount: qs.CompletedMatchesCount,
		PlayersByStatus:       make(map[string]int, len(qs.PlayersByStatus)),
		MatchesByState:        make(map[string]int, len(qs.MatchesByState)),
	}
	for k, v := range qs.PlayersByStatus {
		resp.PlayersByStatus[string(k)] = v
	}
	for k, v := range qs.MatchesByState {
		resp.MatchesByState[string(k)] = v
	}
	return resp
}

// Tiebreak describes one resolved boundary tie
type Tiebreak struct {
	ChipCount      int            `json:"chip_count"`
	Tied           []string       `json:"tied"`
	Slots          int            `json:"slots"`
	Method         string         `json:"method"`
	Advanced       []string       `json:"advanced"`
	Eliminated     []string       `json:"eliminated"`
	HeadToHeadWins map[string]int `json:"head_to_head_wins,omitempty"`
}

// CutoffResult is the finals partition
type CutoffResult struct {
	Finalists  []string   `json:"finalists"`
	Eliminated []string   `json:"eliminated"`
	Tiebreaks  []Tiebreak `json:"tiebreakers"`
	AppliedAt  time.Time  `json:"applied_at"`
}

// CutoffFromModel converts a model.CutoffResult
func CutoffFromModel(r *model.CutoffResult) CutoffResult {
	resp := CutoffResult{
		Finalists:  ids(r.Finalists),
		Eliminated: ids(r.Eliminated),
		Tiebreaks:  make([]Tiebreak, len(r.Tiebreaks)),
		AppliedAt:  r.AppliedAt,
	}
	for i, tb := range r.Tiebreaks {
		t := Tiebreak{
			ChipCount:  tb.ChipCount,
			Tied:       ids(tb.Tied),
			Slots:      tb.Slots,
			Method:     string(tb.Method),
			Advanced:   ids(tb.Advanced),
			Eliminated: ids(tb.Eliminated),
		}
		if tb.HeadToHeadWins != nil {
			t.HeadToHeadWins = make(map[string]int, len(tb.HeadToHeadWins))
			for k, v := range tb.HeadToHeadWins {
				t.HeadToHeadWins[string(k)] = v
			}
		}
		resp.Tiebreaks[i] = t
	}
	return resp
}

// Discrepancy is a player whose total disagrees with the award log
type Discrepancy struct {
	PlayerID   string `json:"player_id"`
	ChipCount  int    `json:"chip_count"`
	AwardTotal int    `json:"award_total"`
}

// ReconcileReport lists every discrepancy found
type ReconcileReport struct {
	Consistent    bool          `json:"consistent"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// ReconcileFromService converts ledger discrepancies
func ReconcileFromService(ds []ledger.Discrepancy) ReconcileReport {
	resp := ReconcileReport{
		Consistent:    len(ds) == 0,
		Discrepancies: make([]Discrepancy, len(ds)),
	}
	for i, d := range ds {
		resp.Discrepancies[i] = Discrepancy{
			PlayerID:   string(d.PlayerID),
			ChipCount:  d.ChipCount,
			AwardTotal: d.AwardTotal,
		}
	}
	return resp
}

// Rating is a player's external rating
type Rating struct {
	PlayerID string  `json:"player_id"`
	Rating   float64 `json:"rating"`
}

// RatingList wraps the ratings of a tournament
type RatingList struct {
	Ratings []Rating `json:"ratings"`
}

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}

func ids[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
