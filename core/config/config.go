// Package config loads run settings from an optional TOML file, an optional
// .env file and XM_-prefixed environment variables, in that order. Later
// sources win.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/ankit-chaubey/xm-surgery/core/container"
	"github.com/ankit-chaubey/xm-surgery/core/tagframe"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "XM_"

type Config struct {
	Workers        int    `toml:"workers" env:"WORKERS, overwrite"`
	OutputDir      string `toml:"output_dir" env:"OUTPUT_DIR, overwrite"`
	Extension      string `toml:"extension" env:"EXTENSION, overwrite"`
	LangWidth      string `toml:"lang_width" env:"LANG_WIDTH, overwrite"`
	RepairLanguage bool   `toml:"repair_language" env:"REPAIR_LANGUAGE, overwrite"`
	Verify         bool   `toml:"verify" env:"VERIFY, overwrite"`
	DryRun         bool   `toml:"dry_run" env:"DRY_RUN, overwrite"`
	LogLevel       string `toml:"log_level" env:"LOG_LEVEL, overwrite"`
	LogFormat      string `toml:"log_format" env:"LOG_FORMAT, overwrite"`
}

func Default() Config {
	return Config{
		Workers:   4,
		Extension: ".xm",
		LangWidth: "auto",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// path is empty), ./.env and the process environment.
func Load(ctx context.Context, path string) (Config, error) {
	if err := LoadEnv(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return loadWith(ctx, path, envconfig.OsLookuper())
}

// LoadEnv copies ./.env into the environment without overriding variables
// that are already set.
func LoadEnv() error {
	return godotenv.Load()
}

func loadWith(ctx context.Context, path string, l envconfig.Lookuper) (Config, error) {
	cfg := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
		}
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Workers < 1 {
		return fmt.Errorf("config workers must be at least 1, got %d", cfg.Workers)
	}
	if !strings.HasPrefix(cfg.Extension, ".") {
		return fmt.Errorf("config extension %q must start with a dot", cfg.Extension)
	}
	if _, err := tagframe.ParseLangWidth(cfg.LangWidth); err != nil {
		return fmt.Errorf("config lang_width: %w", err)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config log_format %q must be text or json", cfg.LogFormat)
	}
	return nil
}

// Options converts the pipeline settings of cfg.
func (c Config) Options() container.Options {
	w, _ := tagframe.ParseLangWidth(c.LangWidth)
	return container.Options{
		DryRun:         c.DryRun,
		LangWidth:      w,
		RepairLanguage: c.RepairLanguage,
		Verify:         c.Verify,
	}
}
