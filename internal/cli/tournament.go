package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/chiptourney/internal/api/response"
)

func newTournamentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tournament",
		Short: "Tournament commands",
	}

	cmd.AddCommand(newTournamentCreateCmd())
	cmd.AddCommand(newTournamentListCmd())
	cmd.AddCommand(newTournamentGetCmd())
	cmd.AddCommand(newTournamentReconcileCmd())

	return cmd
}

func newTournamentCreateCmd() *cobra.Command {
	var (
		name                    string
		winnerChips, loserChips int
		rounds, finals          int
		strategy, tiebreaker    string
		allowDuplicates         bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tournament",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only flags the user set are sent; the server fills in the rest
			config := map[string]any{}
			flags := cmd.Flags()
			if flags.Changed("winner-chips") {
				config["winner_chips"] = winnerChips
			}
			if flags.Changed("loser-chips") {
				config["loser_chips"] = loserChips
			}
			if flags.Changed("rounds") {
				config["qualification_rounds"] = rounds
			}
			if flags.Changed("finals") {
				config["finals_count"] = finals
			}
			if flags.Changed("strategy") {
				config["pairing_strategy"] = strategy
			}
			if flags.Changed("tiebreaker") {
				config["tiebreaker"] = tiebreaker
			}
			if flags.Changed("allow-rematches") {
				config["allow_duplicate_pairings"] = allowDuplicates
			}

			req := map[string]any{"name": name, "config": config}
			var result response.Tournament
			if err := client.Post("/api/v1/tournaments", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Tournament name (required)")
	cmd.Flags().IntVar(&winnerChips, "winner-chips", 3, "Chips awarded for a win")
	cmd.Flags().IntVar(&loserChips, "loser-chips", 1, "Chips awarded for a loss")
	cmd.Flags().IntVar(&rounds, "rounds", 3, "Matches each player must finish before the cutoff")
	cmd.Flags().IntVar(&finals, "finals", 8, "Number of finals slots")
	cmd.Flags().StringVar(&strategy, "strategy", "random", "Pairing strategy: random, rating, chip_diff")
	cmd.Flags().StringVar(&tiebreaker, "tiebreaker", "head_to_head", "Cutoff tiebreaker: head_to_head, standings_order")
	cmd.Flags().BoolVar(&allowDuplicates, "allow-rematches", false, "Allow the same two players to meet again")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newTournamentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tournaments",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.TournamentList
			if err := client.Get("/api/v1/tournaments", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newTournamentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the selected tournament",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.Tournament
			if err := client.Get(base, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newTournamentReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check chip totals against the award log",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.ReconcileReport
			if err := client.Get(base+"/reconcile", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			if !result.Consistent {
				return fmt.Errorf("%d discrepancies found", len(result.Discrepancies))
			}
			return nil
		},
	}
}

func newStandingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "standings",
		Short: "Show the ranked standings",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.Standings
			if err := client.Get(base+"/standings", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.QueueStats
			if err := client.Get(base+"/stats", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newCutoffCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "cutoff",
		Short: "Show or apply the finals cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.CutoffResult
			if apply {
				err = client.Post(base+"/cutoff", nil, &result)
			} else {
				err = client.Get(base+"/cutoff", &result)
			}
			if err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Finalize the tournament")

	return cmd
}
