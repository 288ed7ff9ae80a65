package main

import (
	"github.com/spf13/cobra"

	"github.com/labelfeed/github-label-feed/internal/db"
	"github.com/labelfeed/github-label-feed/internal/feed"
	issuesync "github.com/labelfeed/github-label-feed/internal/sync"
)

func newGenerateCommand(a *app) *cobra.Command {
	var (
		withoutOpen   bool
		withoutClosed bool
		rss           bool
		atom          bool
	)

	cmd := &cobra.Command{
		Use:   "generate <owner/repo> <out_path> [labels...]",
		Short: "Generate per-label feed documents from the local database",
		Long: `Generate writes one directory per label under <out_path>, containing
atom.xml and/or rss.xml built from the locally stored issues. Without label
arguments, every label stored for the repository is generated.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := issuesync.ParseRepositoryString(args[0])
			if err != nil {
				return err
			}

			// Atom is the default format
			if !rss && !atom {
				atom = true
			}

			opts := feed.Options{
				OutPath:       args[1],
				Labels:        args[2:],
				WithoutOpen:   withoutOpen,
				WithoutClosed: withoutClosed,
				Atom:          atom,
				RSS:           rss,
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

			return database.WithTransaction(func(tx *db.Tx) error {
				return feed.New(tx, a.log).Generate(owner, name, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&withoutOpen, "without-open", false, "Exclude open issues from the feeds")
	cmd.Flags().BoolVar(&withoutClosed, "without-closed", false, "Exclude closed issues from the feeds")
	cmd.Flags().BoolVar(&rss, "rss", false, "Emit rss.xml")
	cmd.Flags().BoolVar(&atom, "atom", false, "Emit atom.xml")

	return cmd
}
