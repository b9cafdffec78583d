package cutoff

import (
	"sort"
	"time"

	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/services/ledger"
)

// Partition splits the ranked field into finalists and eliminated players.
// When the boundary falls inside a group tied on chips, the group is
// reordered by the configured tiebreaker and the result records how.
// Withdrawn players take no part.
func Partition(players []*model.Player, matches []*model.Match, cfg model.ChipConfig, now time.Time) *model.CutoffResult {
	entries := ledger.Rank(players)
	result := &model.CutoffResult{
		Finalists:  make([]model.PlayerID, 0, min(cfg.FinalsCount, len(entries))),
		Eliminated: make([]model.PlayerID, 0),
		Tiebreaks:  make([]model.TiebreakRecord, 0),
		AppliedAt:  now,
	}

	ids := make([]model.PlayerID, len(entries))
	for i, e := range entries {
		ids[i] = e.PlayerID
	}

	slots := cfg.FinalsCount
	if slots >= len(entries) {
		result.Finalists = append(result.Finalists, ids...)
		return result
	}

	boundary := entries[slots-1].ChipCount
	if entries[slots].ChipCount != boundary {
		result.Finalists = append(result.Finalists, ids[:slots]...)
		result.Eliminated = append(result.Eliminated, ids[slots:]...)
		return result
	}

	// The tied group is contiguous in standings order
	start, end := slots-1, slots
	for start > 0 && entries[start-1].ChipCount == boundary {
		start--
	}
	for end < len(entries) && entries[end].ChipCount == boundary {
		end++
	}

	record := resolveTie(ids[start:end], slots-start, matches, cfg.Tiebreaker)
	record.ChipCount = boundary

	result.Finalists = append(result.Finalists, ids[:start]...)
	result.Finalists = append(result.Finalists, record.Advanced...)
	result.Eliminated = append(result.Eliminated, record.Eliminated...)
	result.Eliminated = append(result.Eliminated, ids[end:]...)
	result.Tiebreaks = append(result.Tiebreaks, record)
	return result
}

// resolveTie orders a tied group and gives the first slots places to the
// top of it. tied must be in standings order, which is also the fallback.
func resolveTie(tied []model.PlayerID, slots int, matches []*model.Match, method model.Tiebreaker) model.TiebreakRecord {
	order := make([]model.PlayerID, len(tied))
	copy(order, tied)

	record := model.TiebreakRecord{
		Tied:   append([]model.PlayerID(nil), tied...),
		Slots:  slots,
		Method: model.TiebreakStandingsOrder,
	}

	if method == model.TiebreakHeadToHead {
		wins := HeadToHeadWins(tied, matches)
		sort.SliceStable(order, func(i, j int) bool {
			return wins[order[i]] > wins[order[j]]
		})
		record.HeadToHeadWins = wins
		// Credit head-to-head only if wins actually separate the last place
		// in from the first place out
		if wins[order[slots-1]] != wins[order[slots]] {
			record.Method = model.TiebreakHeadToHead
		}
	}

	record.Advanced = order[:slots]
	record.Eliminated = order[slots:]
	return record
}

// HeadToHeadWins counts, for each player in the group, completed matches won
// against another member of the group. Every member has an entry.
func HeadToHeadWins(group []model.PlayerID, matches []*model.Match) map[model.PlayerID]int {
	members := make(map[model.PlayerID]bool, len(group))
	wins := make(map[model.PlayerID]int, len(group))
	for _, id := range group {
		members[id] = true
		wins[id] = 0
	}
	for _, m := range matches {
		if m.State != model.MatchCompleted {
			continue
		}
		if members[m.PlayerA] && members[m.PlayerB] {
			wins[m.Winner]++
		}
	}
	return wins
}
