package main

import (
	"github.com/spf13/cobra"

	"appliance-warranty-backend/internal/db"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			gormDB, err := db.Init(&cfg.Database, log)
			if err != nil {
				return err
			}
			return db.Migrate(gormDB, log)
		},
	}
}
