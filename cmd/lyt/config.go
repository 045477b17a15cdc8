package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config est lu depuis ~/.config/lyt/config.yaml puis surchargé par l'env.
type Config struct {
	FeedURL        string `yaml:"feed_url"`
	InteractionURL string `yaml:"interaction_url"`
	DataDir        string `yaml:"data_dir"`
	Verbose        bool   `yaml:"verbose"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "lyt", "config.yaml")
}

// LoadConfig : un fichier absent n'est pas une erreur, on garde les défauts.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		FeedURL:        "http://localhost:8081",
		InteractionURL: "http://localhost:8082",
		DataDir:        filepath.Dir(path),
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("LYT_FEED_URL"); v != "" {
		cfg.FeedURL = v
	}
	if v := os.Getenv("LYT_INTERACTION_URL"); v != "" {
		cfg.InteractionURL = v
	}
	if v := os.Getenv("LYT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	return cfg, nil
}

func (c Config) sessionPath() string { return filepath.Join(c.DataDir, "session.json") }

func (c Config) cachePath() string { return filepath.Join(c.DataDir, "preferences.db") }
