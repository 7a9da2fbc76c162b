package main

import (
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mbaizhakyp/floodwise/internal/config"
	"github.com/mbaizhakyp/floodwise/internal/observability"
)

var (
	cfgFile string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "floodwise",
	Short: "Flood information question answering over PostGIS flood data",
	Long: `Floodwise answers natural-language questions about flood risk. It extracts
locations from a query, enriches them with county data, precipitation records,
historical flood events, and social vulnerability rankings, selects the
relevant context, and generates an answer.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; the environment may already be set.
		_ = godotenv.Load()
		if noColor {
			color.NoColor = true
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, *observability.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "floodwise",
	})
	return cfg, logger, nil
}
