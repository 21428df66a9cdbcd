package main

import (
	"context"
	"fmt"

	"github.com/agendasalon/agenda/libs/config"
	"github.com/agendasalon/agenda/libs/db"
	"github.com/agendasalon/agenda/services/booking-service/migrations"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, err := config.RequiredString("DATABASE_URL")
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: 2})
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
			return nil
		},
	})
	return cmd
}
