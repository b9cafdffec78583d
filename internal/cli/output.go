package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mcoot/chiptourney/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Tournament:
		o.printTournament(v)
	case response.TournamentList:
		o.printTournamentList(v)
	case response.Player:
		o.printPlayerList([]response.Player{v})
	case response.PlayerList:
		o.printPlayerList(v.Players)
	case response.Match:
		o.printMatchList([]response.Match{v})
	case response.MatchList:
		o.printMatchList(v.Matches)
	case response.MatchResult:
		o.printMatchResult(v)
	case response.AssignmentList:
		o.printAssignments(v)
	case response.Adjustment:
		o.printAdjustment(v)
	case response.AwardList:
		o.printAwards(v.Awards)
	case response.Standings:
		o.printStandings(v)
	case response.QueueStats:
		o.printQueueStats(v)
	case response.CutoffResult:
		o.printCutoff(v)
	case response.ReconcileReport:
		o.printReconcile(v)
	case response.Rating:
		fmt.Fprintf(o.w, "%s: %g\n", v.PlayerID, v.Rating)
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		o.printJSON(data)
	}
}

func (o *Output) table(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func (o *Output) printTournament(t response.Tournament) {
	fmt.Fprintf(o.w, "Tournament: %s (%s)\n", t.Name, t.ID)
	fmt.Fprintf(o.w, "Phase: %s\n", t.Phase)
	c := t.Config
	fmt.Fprintf(o.w, "Awards: win %d, loss %d\n", c.WinnerChips, c.LoserChips)
	fmt.Fprintf(o.w, "Qualification rounds: %d\n", c.QualificationRounds)
	fmt.Fprintf(o.w, "Finals: %d (tiebreak %s)\n", c.FinalsCount, c.Tiebreaker)
	fmt.Fprintf(o.w, "Pairing: %s (rematches allowed: %t)\n", c.PairingStrategy, c.AllowDuplicatePairings)
	if t.Cutoff != nil {
		fmt.Fprintf(o.w, "Finalists: %s\n", strings.Join(t.Cutoff.Finalists, ", "))
	}
}

func (o *Output) printTournamentList(l response.TournamentList) {
	tw := o.table("ID", "NAME", "PHASE")
	for _, t := range l.Tournaments {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Name, t.Phase)
	}
	_ = tw.Flush()
}

func (o *Output) printPlayerList(players []response.Player) {
	tw := o.table("ID", "NAME", "CHIPS", "PLAYED", "STATUS")
	for _, p := range players {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", p.ID, p.DisplayName, p.ChipCount, p.MatchesPlayed, p.Status)
	}
	_ = tw.Flush()
}

func (o *Output) printMatchList(matches []response.Match) {
	tw := o.table("ID", "ROUND", "PLAYER A", "PLAYER B", "STATE", "WINNER")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", m.ID, m.Round, m.PlayerA, m.PlayerB, m.State, m.Winner)
	}
	_ = tw.Flush()
}

func (o *Output) printMatchResult(r response.MatchResult) {
	fmt.Fprintf(o.w, "Match %s completed\n", r.Match.ID)
	fmt.Fprintf(o.w, "Winner: %s (%d chips)\n", r.Winner.DisplayName, r.Winner.ChipCount)
	fmt.Fprintf(o.w, "Loser: %s (%d chips)\n", r.Loser.DisplayName, r.Loser.ChipCount)
}

func (o *Output) printAssignments(l response.AssignmentList) {
	if len(l.Assignments) == 0 {
		fmt.Fprintln(o.w, "No matches assigned")
		return
	}
	tw := o.table("MATCH", "ROUND", "PLAYER A", "PLAYER B")
	for _, a := range l.Assignments {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", a.MatchID, a.Round, a.PlayerAID, a.PlayerBID)
	}
	_ = tw.Flush()
}

func (o *Output) printAdjustment(a response.Adjustment) {
	fmt.Fprintf(o.w, "%s now has %d chips\n", a.PlayerID, a.NewChipCount)
	if a.Award.Amount != a.Award.RequestedAmount {
		fmt.Fprintf(o.w, "Requested %d, applied %d\n", a.Award.RequestedAmount, a.Award.Amount)
	}
}

func (o *Output) printAwards(awards []response.Award) {
	tw := o.table("TIME", "MATCH", "AMOUNT", "REASON")
	for _, a := range awards {
		fmt.Fprintf(tw, "%s\t%s\t%+d\t%s\n", a.Timestamp.Format("15:04:05"), a.MatchID, a.Amount, a.Reason)
	}
	_ = tw.Flush()
}

func (o *Output) printStandings(s response.Standings) {
	tw := o.table("RANK", "PLAYER", "NAME", "CHIPS", "PLAYED", "STATUS")
	for _, e := range s.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", e.Rank, e.PlayerID, e.DisplayName, e.ChipCount, e.MatchesPlayed, e.Status)
	}
	_ = tw.Flush()
	fmt.Fprintf(o.w, "\nPlayers: %d  Avg chips: %.2f  Range: %d-%d  Avg played: %.2f\n",
		s.Stats.Count, s.Stats.AverageChips, s.Stats.MinChips, s.Stats.MaxChips, s.Stats.AverageMatchesPlayed)
}

func (o *Output) printQueueStats(q response.QueueStats) {
	fmt.Fprintf(o.w, "Phase: %s\n", q.Phase)
	fmt.Fprintf(o.w, "Available: %d\n", q.AvailableCount)
	fmt.Fprintf(o.w, "Matches in flight: %d\n", q.ActiveMatchesCount)
	fmt.Fprintf(o.w, "Matches completed: %d\n", q.CompletedMatchesCount)
}

func (o *Output) printCutoff(c response.CutoffResult) {
	fmt.Fprintf(o.w, "Finalists: %s\n", strings.Join(c.Finalists, ", "))
	fmt.Fprintf(o.w, "Eliminated: %s\n", strings.Join(c.Eliminated, ", "))
	for _, tb := range c.Tiebreaks {
		fmt.Fprintf(o.w, "Tie at %d chips for %d slot(s) resolved by %s: advanced %s\n",
			tb.ChipCount, tb.Slots, tb.Method, strings.Join(tb.Advanced, ", "))
	}
}

func (o *Output) printReconcile(r response.ReconcileReport) {
	if r.Consistent {
		fmt.Fprintln(o.w, "Ledger consistent")
		return
	}
	tw := o.table("PLAYER", "CHIPS", "AWARD TOTAL")
	for _, d := range r.Discrepancies {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", d.PlayerID, d.ChipCount, d.AwardTotal)
	}
	_ = tw.Flush()
}
