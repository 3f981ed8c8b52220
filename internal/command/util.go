package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"golang.org/x/term"

	"github.com/jarvisboard/jarvisboard/internal/config"
	"github.com/jarvisboard/jarvisboard/internal/storage"
)

type configKey struct{}

// prompt reads one line from stdin, printing msg first when stdin is a
// terminal. With mask set, terminal input is not echoed.
func prompt(msg string, mask bool) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}
	if _, err := os.Stderr.WriteString(msg); err != nil {
		return nil, err
	}
	if !mask {
		return readLine(os.Stdin)
	}
	line, err := term.ReadPassword(fd)
	_, _ = os.Stderr.WriteString("\n")
	return line, err
}

// readLine reads up to the next newline, dropping any trailing carriage
// return. It reads a byte at a time so nothing past the line is consumed.
func readLine(r io.Reader) ([]byte, error) {
	var (
		line []byte
		buf  [1]byte
	)
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			if buf[0] == '\n' {
				return bytes.TrimSuffix(line, []byte{'\r'}), nil
			}
			line = append(line, buf[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return bytes.TrimSuffix(line, []byte{'\r'}), nil
			}
			return line, err
		}
	}
}

// version reports the module version for tagged builds, or the VCS revision
// for local ones.
func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown-dev"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	rev, dirty := "unknown", false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rev = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if dirty {
		rev += "-dev"
	}
	return rev
}

func configFrom(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok {
		return nil, errors.New("config file resolution failed")
	}
	return cfg, nil
}

func loadConfig(ctx context.Context) (*config.Config, *slog.Logger, storage.Store, error) {
	cfg, err := configFrom(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := slog.Default()
	store, err := storage.NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, store, nil
}
