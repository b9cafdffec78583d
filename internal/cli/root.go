package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "chipctl",
		Short: "CLI tool for the chip tournament API",
		Long: `chipctl drives a chip tournament server over its JSON API.

Create a tournament, register players, hand out matches from the queue,
record results and apply the finals cutoff once qualifying is over.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL)
			client.verbose = cfg.Verbose
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: CHIPCTL_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Tournament, "tournament", "t", cfg.Tournament, "Tournament ID (env: CHIPCTL_TOURNAMENT)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	rootCmd.AddCommand(newTournamentCmd())
	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newAssignCmd())
	rootCmd.AddCommand(newMatchCmd())
	rootCmd.AddCommand(newStandingsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newCutoffCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
