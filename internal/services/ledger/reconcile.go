package ledger

import (
	"context"
	"log/slog"

	"github.com/mcoot/chiptourney/internal/model"
)

// maxReconcileReads bounds re-reads when awards are appended mid-reconcile
const maxReconcileReads = 5

// Discrepancy is a player whose stored total disagrees with the award log
type Discrepancy struct {
	PlayerID   model.PlayerID
	ChipCount  int
	AwardTotal int
}

// Reconcile re-derives every total from the award log and reports players
// whose stored total differs. An empty result means the ledger is consistent.
func (s *Service) Reconcile(ctx context.Context, tid model.TournamentID) ([]Discrepancy, error) {
	for read := 0; read < maxReconcileReads; read++ {
		before, err := s.storage.ListAwards(ctx, tid, "")
		if err != nil {
			return nil, err
		}
		players, err := s.storage.ListPlayers(ctx, tid)
		if err != nil {
			return nil, err
		}
		after, err := s.storage.ListAwards(ctx, tid, "")
		if err != nil {
			return nil, err
		}

		// Every total change appends an award in the same commit, so an
		// unchanged log means the player read saw exactly these awards
		if len(before) != len(after) {
			continue
		}

		discrepancies := Diff(players, after)
		if len(discrepancies) > 0 {
			s.logger.Warn("ledger discrepancies found",
				slog.String("tournament_id", string(tid)),
				slog.Int("count", len(discrepancies)),
			)
		}
		return discrepancies, nil
	}
	return nil, model.ErrConcurrencyConflict
}

// Diff compares stored totals against the sum of awards per player
func Diff(players []*model.Player, awards []*model.ChipAward) []Discrepancy {
	totals := make(map[model.PlayerID]int, len(players))
	for _, a := range awards {
		totals[a.PlayerID] += a.Amount
	}
	var result []Discrepancy
	for _, p := range players {
		if totals[p.ID] != p.ChipCount {
			result = append(result, Discrepancy{
				PlayerID:   p.ID,
				ChipCount:  p.ChipCount,
				AwardTotal: totals[p.ID],
			})
		}
	}
	return result
}
