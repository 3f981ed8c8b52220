package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "JARVISBOARD_"

// LookupFunc resolves an environment variable, matching [os.LookupEnv].
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with any JARVISBOARD_* variables resolved by lookup.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	strs := map[string]*string{
		"LOG_LEVEL":        &cfg.LogLevel,
		"WEB_ADDRESS":      &cfg.WebAddress,
		"DB_FILEPATH":      &cfg.DBFilepath,
		"PASSWORD_HASH":    &cfg.Auth.PasswordHash,
		"SIGNING_SECRET":   &cfg.Auth.SigningSecret,
		"INTERNAL_API_KEY": &cfg.Auth.InternalAPIKey,
	}
	for name, dst := range strs {
		if val, ok := lookup(EnvPrefix + name); ok {
			*dst = val
		}
	}

	bools := map[string]*bool{
		"DEV_MODE":      &cfg.DevMode,
		"SECURE_COOKIE": &cfg.Session.SecureCookie,
	}
	for name, dst := range bools {
		val, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s%s value %q: %w", EnvPrefix, name, val, err)
		}
		*dst = parsed
	}

	if val, ok := lookup(EnvPrefix + "KEY_PATHS"); ok {
		cfg.Access.KeyPaths = splitList(val)
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
