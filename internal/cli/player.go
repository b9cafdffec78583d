package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/chiptourney/internal/api/response"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player management commands",
	}

	cmd.AddCommand(newPlayerRegisterCmd())
	cmd.AddCommand(newPlayerListCmd())
	cmd.AddCommand(newPlayerGetCmd())
	cmd.AddCommand(newPlayerWithdrawCmd())
	cmd.AddCommand(newPlayerAwardsCmd())
	cmd.AddCommand(newPlayerRatingCmd())
	cmd.AddCommand(newAdjustCmd())

	return cmd
}

func newPlayerRegisterCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a player into the tournament",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.Player
			if err := client.Post(base+"/players", map[string]string{"display_name": name}, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPlayerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List players",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.PlayerList
			if err := client.Get(base+"/players", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newPlayerGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <player-id>",
		Short: "Show a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.Player
			if err := client.Get(base+"/players/"+args[0], &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newPlayerWithdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <player-id>",
		Short: "Withdraw an available player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.Player
			if err := client.Post(base+"/players/"+args[0]+"/withdraw", nil, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newPlayerAwardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "awards <player-id>",
		Short: "Show a player's chip history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.AwardList
			if err := client.Get(base+"/players/"+args[0]+"/awards", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newPlayerRatingCmd() *cobra.Command {
	var rating float64

	cmd := &cobra.Command{
		Use:   "rating <player-id>",
		Short: "Set a player's rating for rating pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.Rating
			if err := client.Put(base+"/players/"+args[0]+"/rating", map[string]float64{"rating": rating}, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().Float64Var(&rating, "rating", 0, "Rating value (required)")
	_ = cmd.MarkFlagRequired("rating")

	return cmd
}

func newAdjustCmd() *cobra.Command {
	var (
		delta  int
		reason string
	)

	cmd := &cobra.Command{
		Use:   "adjust <player-id>",
		Short: "Manually adjust a player's chips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			req := map[string]any{"delta": delta, "reason": reason}
			var result response.Adjustment
			if err := client.Post(base+"/players/"+args[0]+"/adjustments", req, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&delta, "delta", 0, "Chips to add, negative to remove (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the ledger (required)")
	_ = cmd.MarkFlagRequired("delta")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}
