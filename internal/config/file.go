package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wagiedev/vim-channel-go/internal/errors"
)

// DefaultListen is the address the command line server listens on.
const DefaultListen = "127.0.0.1:8765"

// File is the on-disk configuration of the command line server.
type File struct {
	Listen         string
	LogLevel       slog.Level
	RequestTimeout time.Duration
	Modulus        uint64
}

type fileConfig struct {
	Listen         string `toml:"listen"`
	LogLevel       string `toml:"log_level"`
	RequestTimeout string `toml:"request_timeout"`
	Modulus        int64  `toml:"modulus"`
}

// DefaultFile returns the server defaults.
func DefaultFile() File {
	return File{
		Listen:         DefaultListen,
		LogLevel:       slog.LevelInfo,
		RequestTimeout: 30 * time.Second,
	}
}

// Load reads a TOML config file. Keys missing from the file keep their
// defaults.
//
//	listen = "127.0.0.1:8765"
//	log_level = "debug"
//	request_timeout = "10s"
//	modulus = 4294967296
func Load(path string) (File, error) {
	cfg := DefaultFile()

	var raw fileConfig

	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return File{}, fmt.Errorf("load config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return File{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen") {
		if listen := strings.TrimSpace(raw.Listen); listen != "" {
			cfg.Listen = listen
		}
	}

	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return File{}, fmt.Errorf("parse log_level: %w", err)
		}
	}

	if meta.IsDefined("request_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RequestTimeout))
		if err != nil {
			return File{}, fmt.Errorf("parse request_timeout: %w", err)
		}

		if d < 0 {
			return File{}, fmt.Errorf("parse request_timeout: negative duration %s", d)
		}

		cfg.RequestTimeout = d
	}

	if meta.IsDefined("modulus") {
		if raw.Modulus < 0 {
			return File{}, fmt.Errorf("parse modulus: negative value %d", raw.Modulus)
		}

		if raw.Modulus == 1 {
			return File{}, fmt.Errorf("parse modulus: %w", errors.ErrInvalidModulus)
		}

		cfg.Modulus = uint64(raw.Modulus)
	}

	return cfg, nil
}
