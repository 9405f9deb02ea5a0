package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rpattn/fieldgate/internal/db"
)

func NewMigrateCommand() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrates or initializes the PostgreSQL database to the latest schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			conn, err := db.NewConnection(context.Background(), cfg.Database)
			if err != nil {
				return errors.WithMessage(err, "could not connect to db")
			}
			defer conn.Close()

			if down > 0 {
				return errors.WithMessage(db.RollbackMigrations(conn.Pool, down), "could not roll back db")
			}
			return errors.WithMessage(db.RunMigrations(conn.Pool), "could not migrate db")
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "Roll back this many migrations instead of migrating up")
	return cmd
}
