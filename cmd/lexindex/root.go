package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"lexindex/internal/config"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "lexindex",
		Short: "Index legal documents for retrieval-augmented search",
		Long: `lexindex splits legal documents into overlapping chunks, embeds
them and writes the vectors into a vector index so they can be
retrieved by similarity search.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config (default: ./config.yaml, then ~/.config/lexindex/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newAddCmd(opts),
		newIndexCmd(opts),
		newReindexCmd(opts),
		newRemoveCmd(opts),
		newListCmd(opts),
		newSearchCmd(opts),
		newChatCmd(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*config.AppConfig, error) {
	if o.configPath != "" {
		return config.Load(o.configPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}
