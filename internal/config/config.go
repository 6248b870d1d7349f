// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads hotswap configuration from a YAML file, HOTSWAP_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/hotswap/internal/xdg"
	"github.com/holomush/hotswap/pkg/fixup"
)

// Error codes for configuration.
const (
	CodeConfigMissing = "CONFIG_MISSING"
	CodeConfigInvalid = "CONFIG_INVALID"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HOTSWAP_"

// Backends.
const (
	BackendNative  = "native"
	BackendProcess = "process"
)

// Strategies.
const (
	StrategyPoll  = "poll"
	StrategyWatch = "watch"
)

// Config is the complete hotswap configuration.
type Config struct {
	Library        string        `koanf:"library" json:"library,omitempty" jsonschema_description:"Path of the plugin library to load and watch"`
	ShadowDir      string        `koanf:"shadow-dir" json:"shadow-dir,omitempty" jsonschema_description:"Directory for private copies of the library (default: .hotswap-shadow next to it)"`
	Symbol         string        `koanf:"symbol" json:"symbol,omitempty" validate:"required" jsonschema_description:"Exported constructor to invoke"`
	Backend        string        `koanf:"backend" json:"backend,omitempty" validate:"oneof=native process" jsonschema:"enum=native,enum=process" jsonschema_description:"How the library is loaded"`
	Strategy       string        `koanf:"strategy" json:"strategy,omitempty" validate:"oneof=poll watch" jsonschema:"enum=poll,enum=watch" jsonschema_description:"What triggers a reload attempt"`
	PollInterval   time.Duration `koanf:"poll-interval" json:"poll-interval,omitempty" validate:"gt=0" jsonschema:"type=string" jsonschema_description:"Interval between reload attempts for the poll strategy"`
	Debounce       time.Duration `koanf:"debounce" json:"debounce,omitempty" validate:"gt=0" jsonschema:"type=string" jsonschema_description:"Quiet period after a file change for the watch strategy"`
	WatchPattern   string        `koanf:"watch-pattern" json:"watch-pattern,omitempty" jsonschema_description:"Glob of file names that trigger the watch strategy (default: the library's name)"`
	LogFormat      string        `koanf:"log-format" json:"log-format,omitempty" validate:"oneof=json text" jsonschema:"enum=json,enum=text"`
	LogLevel       string        `koanf:"log-level" json:"log-level,omitempty" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	MetricsAddr    string        `koanf:"metrics-addr" json:"metrics-addr,omitempty" validate:"omitempty,hostname_port" jsonschema_description:"Metrics and health HTTP address (empty = disabled)"`
	StartupRetries int           `koanf:"startup-retries" json:"startup-retries,omitempty" validate:"gte=0,lte=100" jsonschema_description:"Extra attempts for the initial load"`
}

// Default returns the configuration used for unset keys.
func Default() *Config {
	return &Config{
		Symbol:         fixup.EntrySymbol,
		Backend:        BackendNative,
		Strategy:       StrategyWatch,
		PollInterval:   time.Second,
		Debounce:       2 * time.Second,
		LogFormat:      "json",
		LogLevel:       "info",
		MetricsAddr:    "",
		StartupRetries: 3,
	}
}

// RegisterFlags adds one flag per key to fs, defaulting to Default().
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("library", d.Library, "plugin library path")
	fs.String("shadow-dir", d.ShadowDir, "directory for library copies (default: .hotswap-shadow next to the library)")
	fs.String("symbol", d.Symbol, "exported constructor symbol")
	fs.String("backend", d.Backend, "plugin backend (native or process)")
	fs.String("strategy", d.Strategy, "reload strategy (poll or watch)")
	fs.Duration("poll-interval", d.PollInterval, "poll strategy interval")
	fs.Duration("debounce", d.Debounce, "watch strategy quiet period")
	fs.String("watch-pattern", d.WatchPattern, "glob of file names that trigger a reload (default: library name)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn or error)")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.Int("startup-retries", d.StartupRetries, "extra attempts for the initial load")
}

// validate is a package-level singleton; validators cache struct metadata.
var validate = validator.New()

// Load merges the configuration sources. path names a YAML file; when empty
// the XDG config file is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = defaultFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, oops.Code(CodeConfigMissing).
			With("path", path).
			Wrapf(err, "config file not found")
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
		if err != nil {
			return nil, oops.Code(CodeConfigInvalid).With("path", path).Wrapf(err, "read config file")
		}
		if err := ValidateSchema(data); err != nil {
			return nil, oops.Code(CodeConfigInvalid).With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeConfigInvalid).With("path", path).Wrapf(err, "parse config file")
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code(CodeConfigInvalid).Wrapf(err, "read environment")
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code(CodeConfigInvalid).Wrapf(err, "read flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code(CodeConfigInvalid).Wrapf(err, "decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Library) == "" {
		return oops.Code(CodeConfigMissing).
			Hint("set library in the config file, HOTSWAP_LIBRARY or --library").
			Errorf("plugin library is not configured")
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" failed "+fe.Tag())
			}
			return oops.Code(CodeConfigInvalid).
				With("fields", fields).
				Errorf("invalid configuration: %s", strings.Join(fields, "; "))
		}
		return oops.Code(CodeConfigInvalid).Wrap(err)
	}
	return nil
}

// envKey maps HOTSWAP_POLL_INTERVAL to poll-interval.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
}

// defaultFile returns the XDG config file if it exists, else "".
func defaultFile() string {
	path, err := xdg.ConfigFile()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
