package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
)

// Load reads, migrates, and validates the config file at path. A missing
// file is seeded from the built-in template. A file written by an older
// version is regenerated from the template with the user's values merged
// in, after a .backup copy. Malformed TOML and validation failures refuse
// to start.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := defaults()
		if werr := writeRendered(path, cfg); werr != nil {
			return nil, NewLoadError(path, werr)
		}
		slog.Info("Config file created from template", "path", path)
		return cfg, nil
	}
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	// Parse into a zero Config, not into the defaults: the merge below
	// needs to tell user-set fields apart from absent ones.
	var parsed Config
	if err := toml.Unmarshal(raw, &parsed); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidTOML, err))
	}

	cfg := defaults()
	if err := mergo.Merge(cfg, parsed, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merge config: %w", err))
	}

	switch {
	case parsed.Inner.Version < templateVersion:
		if err := migrate(path, raw, cfg, parsed.Inner.Version); err != nil {
			return nil, NewLoadError(path, err)
		}
	case parsed.Inner.Version > templateVersion:
		slog.Warn("Config file was written by a newer build",
			"file_version", parsed.Inner.Version, "supported_version", templateVersion)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// migrate backs up the old file and regenerates it from the template with
// the merged values, bumping inner.version. User values survive; comments
// come from the template text.
func migrate(path string, old []byte, cfg *Config, fromVersion int) error {
	backup := path + ".backup"
	if err := os.WriteFile(backup, old, 0o644); err != nil {
		return fmt.Errorf("write config backup: %w", err)
	}
	cfg.Inner.Version = templateVersion
	if err := writeRendered(path, cfg); err != nil {
		return err
	}
	slog.Info("Config migrated",
		"from_version", fromVersion, "to_version", templateVersion, "backup", backup)
	return nil
}

func writeRendered(path string, cfg *Config) error {
	text, err := Render(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
