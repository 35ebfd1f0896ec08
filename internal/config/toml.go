// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Provider ProviderConfig `toml:"provider"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Lowercase        *bool   `toml:"lowercase"`
	NoPunctuation    *bool   `toml:"no-punct"`
	Gate             *string `toml:"gate"`
	ClearOnBackspace *bool   `toml:"clear-on-backspace"`
	User             *string `toml:"user"`
	Listen           *string `toml:"listen"`
	Origin           *string `toml:"origin"`
}

// ProviderConfig maps lyrics provider settings.
type ProviderConfig struct {
	LyricsEndpoint      *string        `toml:"lyrics-endpoint"`
	SpotifyClientID     *string        `toml:"spotify-client-id"`
	SpotifyClientSecret *string        `toml:"spotify-client-secret"`
	Timeout             *time.Duration `toml:"timeout"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
