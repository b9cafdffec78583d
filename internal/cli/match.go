package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/chiptourney/internal/api/response"
)

func newAssignCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Pair available players into new matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var body any
			if cmd.Flags().Changed("count") {
				body = map[string]int{"count": count}
			}
			var result response.AssignmentList
			if err := client.Post(base+"/assignments", body, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Create up to this many matches, stopping quietly when the pool runs dry")

	return cmd
}

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match commands",
	}

	cmd.AddCommand(newMatchListCmd())
	cmd.AddCommand(newMatchGetCmd())
	cmd.AddCommand(newMatchStartCmd())
	cmd.AddCommand(newMatchCompleteCmd())
	cmd.AddCommand(newMatchCancelCmd())

	return cmd
}

func newMatchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.MatchList
			if err := client.Get(base+"/matches", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newMatchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <match-id>",
		Short: "Show a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return matchAction(client.Get, args[0], "")
		},
	}
}

func newMatchStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <match-id>",
		Short: "Mark a pending match as started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return matchAction(postEmpty, args[0], "/start")
		},
	}
}

func newMatchCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <match-id>",
		Short: "Cancel an open match and return both players to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return matchAction(postEmpty, args[0], "/cancel")
		},
	}
}

func newMatchCompleteCmd() *cobra.Command {
	var winner string

	cmd := &cobra.Command{
		Use:   "complete <match-id>",
		Short: "Record the result of a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.TournamentPath()
			if err != nil {
				return err
			}
			var result response.MatchResult
			path := base + "/matches/" + args[0] + "/complete"
			if err := client.Post(path, map[string]string{"winner_id": winner}, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&winner, "winner", "", "Winning player ID (required)")
	_ = cmd.MarkFlagRequired("winner")

	return cmd
}

func postEmpty(path string, result any) error {
	return client.Post(path, nil, result)
}

func matchAction(call func(string, any) error, matchID, suffix string) error {
	base, err := cfg.TournamentPath()
	if err != nil {
		return err
	}
	var result response.Match
	if err := call(base+"/matches/"+matchID+suffix, &result); err != nil {
		return err
	}
	NewOutput(cfg.Output).Print(result)
	return nil
}
