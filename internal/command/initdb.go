package command

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
)

func initDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create and migrate the database",
		Long: "Applies any pending migrations and creates the status, notes and context\n" +
			"rows. Running it against an initialized database is a no-op.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			// NewDB has already migrated; Init is repeated so the command
			// reports its own failure
			if err = store.Init(cmd.Context()); err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "database initialized", slog.String("path", cfg.DBFilepath))
			return nil
		},
	}
}
