package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labelfeed/github-label-feed/internal/db"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List mirrored repositories with label and issue counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			database, err := a.openDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			return database.WithTransaction(func(tx *db.Tx) error {
				repos, err := tx.ListRepositories()
				if err != nil {
					return err
				}
				for _, repo := range repos {
					fmt.Printf("%s/%s (%d labels, %d issues)\n",
						repo.Owner, repo.Name, repo.LabelCount, repo.IssueCount)
				}
				return nil
			})
		},
	}
}
