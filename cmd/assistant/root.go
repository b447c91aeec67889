package main

import (
	"fmt"
	"os"

	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "assistant",
		Short: "Flashcard assistant driven by natural language",
		Long: `assistant manages decks and flashcards through conversation.

Configuration is read from ./config.yaml (or --config) and SCRY_* environment
variables. Without a database URL the cards live in memory, optionally
seeded from a YAML file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return nil
			}
			if err := os.Setenv(config.EnvPrefix+"_CONFIG", configPath); err != nil {
				return fmt.Errorf("failed to select config file: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file")

	root.AddCommand(newServeCmd(), newAskCmd(), newMigrateCmd())
	return root
}
