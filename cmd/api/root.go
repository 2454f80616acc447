package main

import (
	"fmt"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	indexBackend string
	settings     config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "RecallAI study assistant: summaries and quizzes grounded in your lecture material",
	Long: `recall indexes lecture files and answers questions about them.

Examples:
  recall serve --listen-addr :3000        # run the HTTP API (default)
  recall ingest "lectures/**/*.pdf"       # index files into the local bolt index
  recall ask "what is gradient descent?"  # one-shot question against the local index`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if indexBackend != "" {
			settings.Index.Backend = indexBackend
			if err := settings.Validate(); err != nil {
				return err
			}
		}
		logger_i.Init(settings.Production, settings.LogLevel)
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "recall.yaml", "config file, skipped when missing")
	rootCmd.PersistentFlags().StringVar(&indexBackend, "index", "", "index backend override: memory, bolt or qdrant")
	rootCmd.Flags().StringVar(&listenAddr, "listen-addr", "", "server listen address (default from config)")
	rootCmd.AddCommand(serveCmd, ingestCmd, askCmd)
}
