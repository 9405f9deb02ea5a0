package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rpattn/fieldgate/internal/config"
	"github.com/rpattn/fieldgate/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "fieldgate",
	Short: "Field level gating and audit trail for document workflows",
	Long: `fieldgate lets a workflow transition run only when tracked fields of a
document, including fields inside child tables, changed since the last save,
and records every tracked change in a write-once change log.`,
	SilenceUsage: true,
}

// loadConfig reads configuration and applies the log level. --log-level wins
// over log.level from the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := logging.Setup(cfg.LogLevel); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "Directory containing config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (trace,debug,info,warn,error), overrides log.level")

	rootCmd.AddCommand(
		NewServeCommand(),
		NewMigrateCommand(),
		NewValidateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("could not execute root command")
	}
}
