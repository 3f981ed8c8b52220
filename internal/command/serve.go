package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jarvisboard/jarvisboard/internal/app"
	"github.com/jarvisboard/jarvisboard/internal/config"
	"github.com/jarvisboard/jarvisboard/internal/devseed"
	"github.com/jarvisboard/jarvisboard/internal/sec"
	"github.com/jarvisboard/jarvisboard/internal/server"
	"github.com/jarvisboard/jarvisboard/internal/storage"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the dashboard web app and API",
		Args:  cobra.NoArgs,
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

			grp, ctx := errgroup.WithContext(cmd.Context())

			// In dev mode, fill an empty database with fake activity
			if cfg.DevMode {
				if err = seedStore(ctx, logger, store); err != nil {
					return err
				}
			}

			auth, err := newAuth(ctx, cfg, logger)
			if err != nil {
				return err
			}
			appServer := app.New(cfg, logger, store, auth)

			serveApp(ctx, grp, cfg, logger, appServer)
			return grp.Wait()
		},
	}
}

func newAuth(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app.Auth, error) {
	secret := []byte(cfg.Auth.SigningSecret)
	if len(secret) == 0 {
		var err error
		if secret, err = sec.GenerateSecret(); err != nil {
			return app.Auth{}, err
		}
		logger.WarnContext(ctx, "no signing secret configured, using an ephemeral one; sessions end on restart")
	}
	tokens, err := sec.NewTokens(secret)
	if err != nil {
		return app.Auth{}, err
	}

	if cfg.Auth.PasswordHash == "" {
		logger.WarnContext(ctx, "no password hash configured, every login will be rejected")
	}
	if cfg.Auth.InternalAPIKey == "" {
		logger.InfoContext(ctx, "no internal API key configured, agent access is disabled")
	}

	table := sec.DefaultPolicyTable(cfg.Access.KeyPaths)
	for _, rule := range table.Rules() {
		logger.DebugContext(ctx, "access rule",
			slog.String("prefix", rule.Prefix),
			slog.Any("methods", rule.Methods),
			slog.String("policy", rule.Policy.String()),
		)
	}

	return app.Auth{
		Verifier: sec.NewVerifier(cfg.Auth.PasswordHash),
		Tokens:   tokens,
		Gate:     sec.NewGate(tokens, cfg.Auth.InternalAPIKey, table),
	}, nil
}

func seedStore(ctx context.Context, logger *slog.Logger, store storage.Store) error {
	seed := devseed.Seed()
	res, err := devseed.Populate(ctx, store, seed)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx,
		"dev data seeded",
		slog.Uint64("seed", seed),
		slog.Int("tasks", res.Tasks),
		slog.Int("log_entries", res.LogEntries),
		slog.Int("artifacts", res.Artifacts),
	)
	return nil
}

func serveApp(
	ctx context.Context,
	grp *errgroup.Group,
	cfg *config.Config,
	logger *slog.Logger,
	srv *echo.Echo,
) {
	addr := cfg.WebAddress
	listener, err := server.Listen(ctx, addr)
	if err != nil {
		grp.Go(func() error { return err })
		return
	}

	logger.InfoContext(ctx,
		"starting app server...",
		slog.String("address", listener.Addr().String()),
	)
	server.Serve(ctx, grp, logger, srv.Server, listener, server.DefaultTimeouts)
}
