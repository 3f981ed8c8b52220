// Package config handles resolving configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrMissingSigningSecret is returned when the session signing secret is unset
// outside of dev mode. There is no fallback secret.
var ErrMissingSigningSecret = errors.New("auth.signing_secret is required unless dev_mode is enabled")

// ErrAPIKeyReusesSecret is returned when the internal API key equals the
// session signing secret. Holding the key must not allow minting sessions.
var ErrAPIKeyReusesSecret = errors.New("auth.internal_api_key must differ from auth.signing_secret")

// Log levels accepted by [Config.LogLevel].
const (
	LogLevelDebug = "DEBUG"
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

// Config is the process-wide configuration. It is constructed once at startup
// and must be treated as read-only afterwards.
type Config struct {
	LogLevel   string `yaml:"log_level"   validate:"oneof=DEBUG INFO WARN ERROR"`
	WebAddress string `yaml:"web_address" validate:"required"`
	DBFilepath string `yaml:"db_filepath" validate:"required"`
	DevMode    bool   `yaml:"dev_mode"`

	Auth    Auth    `yaml:"auth"`
	Session Session `yaml:"session"`
	Access  Access  `yaml:"access"`
}

// Auth holds the shared credentials.
type Auth struct {
	// PasswordHash is the bcrypt hash of the dashboard password. An empty hash
	// rejects every login.
	PasswordHash string `yaml:"password_hash" validate:"omitempty,startswith=$2"`
	// BcryptCost is the cost used by the hash-password command.
	BcryptCost int `yaml:"bcrypt_cost" validate:"min=4,max=31"`
	// SigningSecret keys the HMAC of session tokens.
	SigningSecret string `yaml:"signing_secret" validate:"omitempty,min=32"`
	// InternalAPIKey authorizes machine calls via the X-Api-Key header. An
	// empty key disables the bypass.
	InternalAPIKey string `yaml:"internal_api_key" validate:"omitempty,min=16"`
}

// Session configures the session cookie.
type Session struct {
	SecureCookie bool `yaml:"secure_cookie"`
}

// Access configures the request authorization policy table.
type Access struct {
	// KeyPaths are the path prefixes that accept the internal API key in place
	// of a session cookie.
	KeyPaths []string `yaml:"key_paths" validate:"dive,startswith=/"`
}

// DefaultKeyPaths are the resources the agent may reach with the internal key.
func DefaultKeyPaths() []string {
	return []string{"/api/log", "/api/tasks", "/api/notes"}
}

// Default returns a version of the config with all default values populated.
// Note that this configuration is _not_ valid outside of dev mode, as the user
// must set auth.signing_secret.
func Default() *Config {
	return &Config{
		LogLevel:   LogLevelInfo,
		WebAddress: "localhost:9999",
		DBFilepath: filepath.Join(xdg.DataHome, "jarvisboard", "db.sqlite"),
		DevMode:    false,
		Auth: Auth{
			BcryptCost: 12, //nolint:mnd // above bcrypt.DefaultCost
		},
		Access: Access{
			KeyPaths: DefaultKeyPaths(),
		},
	}
}

// Load loads a YAML configuration file from a path, merges it with defaults and
// environment overrides, and validates it for completeness.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // allow the config file to be loaded from anywhere
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file at %s: %w", path, err)
	}
	if err = ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err = Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules that the struct
// tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.Auth.SigningSecret == "" && !cfg.DevMode {
		return ErrMissingSigningSecret
	}
	if cfg.Auth.InternalAPIKey != "" && cfg.Auth.InternalAPIKey == cfg.Auth.SigningSecret {
		return ErrAPIKeyReusesSecret
	}
	return nil
}

// Marshal renders the config as YAML, suitable for writing a new config file.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

const redacted = "[REDACTED]"

// LogValue satisfies [slog.LogValuer], hiding credentials.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("log_level", c.LogLevel),
		slog.String("web_address", c.WebAddress),
		slog.String("db_filepath", c.DBFilepath),
		slog.Bool("dev_mode", c.DevMode),
		slog.Group("auth",
			slog.Bool("password_hash_set", c.Auth.PasswordHash != ""),
			slog.Int("bcrypt_cost", c.Auth.BcryptCost),
			slog.String("signing_secret", redactString(c.Auth.SigningSecret)),
			slog.String("internal_api_key", redactString(c.Auth.InternalAPIKey)),
		),
		slog.Bool("secure_cookie", c.Session.SecureCookie),
		slog.Any("key_paths", c.Access.KeyPaths),
	)
}

func redactString(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}
