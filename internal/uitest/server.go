// Package uitest provides UI testing utilities using Rod.
package uitest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/jarvisboard/jarvisboard/internal/app"
	"github.com/jarvisboard/jarvisboard/internal/config"
	"github.com/jarvisboard/jarvisboard/internal/devseed"
	"github.com/jarvisboard/jarvisboard/internal/sec"
	"github.com/jarvisboard/jarvisboard/internal/server"
	"github.com/jarvisboard/jarvisboard/internal/storage"
)

// TestSeed is the fixed seed used for reproducible test data.
const TestSeed uint64 = 12345

// TestPassword is the dashboard password accepted by the test server.
const TestPassword = "open the pod bay doors"

// Server is a test server that runs the dashboard over a seeded database.
type Server struct {
	baseURL string
	cancel  context.CancelFunc
	grp     *errgroup.Group
	store   storage.Store
	seeded  devseed.Result
}

// newTestServer creates and starts a new test server for use in TestUI. The
// database lives under dir.
func newTestServer(dir string) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	grp, ctx := errgroup.WithContext(ctx)

	logger := slog.New(slog.DiscardHandler)

	cfg := testConfig(dir)
	store, err := storage.NewDB(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	seeded, err := devseed.Populate(ctx, store, TestSeed)
	if err != nil {
		cancel()
		_ = store.Close()
		return nil, fmt.Errorf("failed to seed storage: %w", err)
	}

	auth, err := testAuth(cfg)
	if err != nil {
		cancel()
		_ = store.Close()
		return nil, err
	}

	appServer := app.New(cfg, logger, store, auth)
	appAddr, err := startAppServer(ctx, grp, logger, appServer)
	if err != nil {
		cancel()
		_ = store.Close()
		return nil, fmt.Errorf("failed to start app server: %w", err)
	}

	return &Server{
		baseURL: "http://" + appAddr,
		cancel:  cancel,
		grp:     grp,
		store:   store,
		seeded:  seeded,
	}, nil
}

// BaseURL returns the base URL of the test server.
func (s *Server) BaseURL() string {
	return s.baseURL
}

// Seeded reports what the dev seeder wrote before the server started.
func (s *Server) Seeded() devseed.Result {
	return s.seeded
}

// Store exposes the backing store so tests can assert on persisted state.
func (s *Server) Store() storage.Store {
	return s.store
}

// Close shuts down the test server.
// Errors are ignored since this runs during test cleanup where failures
// are typically unrecoverable and already logged by the errgroup.
func (s *Server) Close() {
	s.cancel()
	_ = s.grp.Wait()
	_ = s.store.Close()
}

// URL constructs a full URL from the server base URL and a path.
func (s *Server) URL(path string) string {
	return fmt.Sprintf("%s%s", s.baseURL, path)
}

func testConfig(dir string) *config.Config {
	cfg := config.Default()
	cfg.LogLevel = config.LogLevelDebug
	cfg.DBFilepath = filepath.Join(dir, "db.sqlite")
	cfg.DevMode = true
	return cfg
}

func testAuth(cfg *config.Config) (app.Auth, error) {
	hash, err := sec.HashPassword(TestPassword, bcrypt.MinCost)
	if err != nil {
		return app.Auth{}, err
	}
	secret, err := sec.GenerateSecret()
	if err != nil {
		return app.Auth{}, err
	}
	tokens, err := sec.NewTokens(secret)
	if err != nil {
		return app.Auth{}, err
	}
	return app.Auth{
		Verifier: sec.NewVerifier(string(hash)),
		Tokens:   tokens,
		Gate:     sec.NewGate(tokens, cfg.Auth.InternalAPIKey, sec.DefaultPolicyTable(cfg.Access.KeyPaths)),
	}, nil
}

func startAppServer(ctx context.Context, grp *errgroup.Group, logger *slog.Logger, srv *echo.Echo) (string, error) {
	listener, err := server.Listen(ctx, "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	addr := listener.Addr().String()

	server.Serve(ctx, grp, logger, srv.Server, listener, server.DefaultTimeouts)

	return addr, nil
}
