package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labelfeed/github-label-feed/config"
	"github.com/labelfeed/github-label-feed/internal/db"
	"github.com/labelfeed/github-label-feed/internal/github"
	issuesync "github.com/labelfeed/github-label-feed/internal/sync"
)

func newSyncCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <owner/repo> [token]",
		Short: "Mirror a repository's labels and issues into the local database",
		Long: `Sync fetches the repository's labels and all issues updated since the
last stored sync watermark, inside a single transaction. The token argument
falls back to the ` + config.EnvGithubToken + ` environment variable.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := issuesync.ParseRepositoryString(args[0])
			if err != nil {
				return err
			}

			tokenArg := ""
			if len(args) > 1 {
				tokenArg = args[1]
			}
			token := config.Token(tokenArg)
			if token == "" {
				return fmt.Errorf("GitHub token not found, pass it as an argument or set %s", config.EnvGithubToken)
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			database, err := a.openDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			client := github.NewClient(token, cfg.Endpoint, cfg.PageSize, a.log)
			syncer := issuesync.New(client, a.log)

			return database.WithTransaction(func(tx *db.Tx) error {
				return syncer.SyncRepository(cmd.Context(), tx, owner, name)
			})
		},
	}
}
