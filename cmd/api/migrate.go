package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/field-ticket-service/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if rt.pool == nil {
				return errors.New("POSTGRES_DSN is required to run migrations")
			}
			return persistence.RunMigrations(cmd.Context(), rt.pool, rt.logger)
		},
	}
}
