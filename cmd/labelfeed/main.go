package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/labelfeed/github-label-feed/config"
	"github.com/labelfeed/github-label-feed/internal/db"
	apierrors "github.com/labelfeed/github-label-feed/internal/errors"
)

var version = "dev"

// app carries the global flags and the one logger handle every component
// receives explicitly
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	log *logrus.Entry
}

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	a := &app{log: logrus.NewEntry(logger)}

	rootCmd := &cobra.Command{
		Use:   "labelfeed",
		Short: "Mirror GitHub issues locally and generate per-label Atom/RSS feeds",
		Long: `labelfeed mirrors a GitHub repository's issues and labels into a local
SQLite database via the GraphQL API, incrementally and resumably, and
projects the stored issues into per-label Atom/RSS feed documents.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "Path to the SQLite database (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(newListCommand(a))
	rootCmd.AddCommand(newSyncCommand(a))
	rootCmd.AddCommand(newGenerateCommand(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(mapErrorToExitCode(err))
	}
}

// loadConfig loads the configuration file and applies flag overrides
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.dbPath != "" {
		cfg.DatabasePath = a.dbPath
	}
	return cfg, nil
}

// openDB opens the store and ensures the schema exists
func (a *app) openDB(cfg *config.Config) (*db.DB, error) {
	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := database.Initialize(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// mapErrorToExitCode maps sentinel errors to exit codes for scripting
func mapErrorToExitCode(err error) int {
	switch {
	case errors.Is(err, apierrors.ErrInvalidToken),
		errors.Is(err, apierrors.ErrRepoNotFound),
		errors.Is(err, apierrors.ErrRateLimit):
		return 2
	case errors.Is(err, apierrors.ErrNetworkFailure):
		return 3
	default:
		return 1
	}
}
