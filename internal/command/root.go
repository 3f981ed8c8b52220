// Package command contains the CLI command constructors.
package command

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/jarvisboard/jarvisboard/internal/config"
	"github.com/jarvisboard/jarvisboard/internal/observability"
	"github.com/jarvisboard/jarvisboard/internal/sec"
)

const defaultEnvFile = ".env"

// RootCommand instantiates the root command, with all sub-commands bound.
func RootCommand() *cobra.Command {
	configFilePath := filepath.Join(xdg.ConfigHome, "jarvisboard.yaml")
	envFilePath := defaultEnvFile
	cmd := &cobra.Command{
		Use:          "jarvisboard [command] [flags]",
		Short:        "The Jarvis agent dashboard",
		Version:      version(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			if err = loadEnvFile(envFilePath, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			cfg, err := loadOrInitConfig(configFilePath)
			if err != nil {
				return fmt.Errorf("failed to load configuration file: %w", err)
			}
			logger := observability.InitSlog(cfg)
			logger.DebugContext(cmd.Context(), "configuration loaded", slog.Any("config", cfg))
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(
		&configFilePath,
		"config", "c",
		configFilePath,
		"path to the configuration file",
	)
	cmd.PersistentFlags().StringVar(
		&envFilePath,
		"env-file",
		envFilePath,
		"path to a .env file of JARVISBOARD_* overrides",
	)

	cmd.AddCommand(
		serveCommand(),
		initDBCommand(),
		hashPasswordCommand(),
	)

	return cmd
}

// loadEnvFile loads the .env file at path. A missing default file is ignored;
// a missing file the user asked for is not.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := config.LoadDotEnv(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

func loadOrInitConfig(configFilePath string) (*config.Config, error) {
	cfg, err := config.Load(configFilePath)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	resp, initErr := prompt(fmt.Sprintf("Config not found at %s. Create one? [y|N] ", configFilePath), false)
	if initErr != nil || !bytes.Equal(resp, []byte("y")) {
		return nil, errors.Join(err, initErr)
	}

	secret, err := sec.GenerateSecret()
	if err != nil {
		return nil, err
	}
	cfg = config.Default()
	cfg.Auth.SigningSecret = hex.EncodeToString(secret)

	resp, err = prompt("Dashboard password (leave empty to set later): ", true)
	if err != nil {
		return nil, err
	}
	if len(resp) > 0 {
		hash, err := sec.HashPassword(resp, cfg.Auth.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		cfg.Auth.PasswordHash = string(hash)
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	const userOnlyDirPerms = 0o700
	if err = os.MkdirAll(filepath.Dir(configFilePath), userOnlyDirPerms); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err = os.WriteFile(configFilePath, data, 0o600); err != nil { //nolint:mnd // owner rw access
		return nil, fmt.Errorf("failed to write config file to %s: %w", configFilePath, err)
	}

	if err = config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
