// Package config loads udot's settings: a YAML file merged with CLI
// flag overrides, plus the session directory resolution every other
// package needs to find state.json, snapshots, and the DynamicFile
// cache.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/udot/udot/internal/uerrors"
)

// rawConfig is the on-disk shape of udot.yaml.
type rawConfig struct {
	Session         string   `yaml:"session"`
	Shell           string   `yaml:"shell"`
	ShellArgs       string   `yaml:"shell_args"`
	ShellTimeout    int      `yaml:"shell_timeout"`
	BackupExtension string   `yaml:"backup_extension"`
	HashSeparator   string   `yaml:"hash_separator"`
	Color           *bool    `yaml:"color"`
	SearchPaths     []string `yaml:"search_paths"`
	DecryptPwd      bool     `yaml:"decrypt_pwd"`
	SkipRoot        bool     `yaml:"skiproot"`
	Makedirs        bool     `yaml:"makedirs"`
	Force           bool     `yaml:"force"`
	Superforce      bool     `yaml:"superforce"`
	DUI             bool     `yaml:"dui"`
}

// Config is the fully resolved settings object, CLI flags already
// merged on top of whatever udot.yaml provided.
type Config struct {
	// SessionDir is the directory holding state.json, snapshot files,
	// and the files/ DynamicFile cache for the current session.
	SessionDir string

	Shell           string
	ShellArgs       string
	ShellTimeoutSec int
	BackupExtension string
	HashSeparator   string
	Color           bool
	SearchPaths     []string
	DecryptPwd      bool

	SkipRoot   bool
	Makedirs   bool
	Force      bool
	Superforce bool
	DUI        bool
	DryRun     bool
	Changes    bool
	Exclude    []string
	Parent     string
}

func defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		SessionDir:      filepath.Join(home, ".udot"),
		Shell:           "/bin/sh",
		ShellArgs:       "-c",
		ShellTimeoutSec: 0,
		BackupExtension: ".bak",
		HashSeparator:   "#",
		Color:           true,
		SearchPaths:     []string{filepath.Join(home, ".config", "udot")},
	}
}

// Load reads udot.yaml from explicitPath or, when that is empty, from
// the first of the default session directory and the default search
// paths that contains one, applying it on top of defaults().
// A missing file is not an error: udot runs fine on defaults alone.
func Load(explicitPath string) (Config, error) {
	cfg := defaults()

	path := explicitPath
	if path == "" {
		for _, dir := range append([]string{cfg.SessionDir}, cfg.SearchPaths...) {
			candidate := filepath.Join(dir, "udot.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, uerrors.NewPrecondition("reading config %s: %v", path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, uerrors.NewPrecondition("parsing config %s: %v", path, err)
	}
	cfg.applyRaw(raw)
	return cfg, nil
}

func (c *Config) applyRaw(raw rawConfig) {
	if raw.Session != "" {
		c.SessionDir = expandHome(raw.Session)
	}
	if raw.Shell != "" {
		c.Shell = raw.Shell
	}
	if raw.ShellArgs != "" {
		c.ShellArgs = raw.ShellArgs
	}
	if raw.ShellTimeout != 0 {
		c.ShellTimeoutSec = raw.ShellTimeout
	}
	if raw.BackupExtension != "" {
		c.BackupExtension = raw.BackupExtension
	}
	if raw.HashSeparator != "" {
		c.HashSeparator = raw.HashSeparator
	}
	if raw.Color != nil {
		c.Color = *raw.Color
	}
	if len(raw.SearchPaths) > 0 {
		expanded := make([]string, len(raw.SearchPaths))
		for i, p := range raw.SearchPaths {
			expanded[i] = expandHome(p)
		}
		c.SearchPaths = expanded
	}
	c.DecryptPwd = raw.DecryptPwd
	c.SkipRoot = raw.SkipRoot
	c.Makedirs = raw.Makedirs
	c.Force = raw.Force
	c.Superforce = raw.Superforce
	c.DUI = raw.DUI
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			if p == "~" {
				return home
			}
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// StatePath is the path to the current state document inside
// SessionDir.
func (c Config) StatePath() string {
	return filepath.Join(c.SessionDir, "state.json")
}

// FilesDir is the root of the content-addressed DynamicFile cache.
func (c Config) FilesDir() string {
	return filepath.Join(c.SessionDir, "files")
}

// EnsureSessionDir creates SessionDir if it doesn't exist yet.
func (c Config) EnsureSessionDir() error {
	if err := os.MkdirAll(c.SessionDir, 0o755); err != nil {
		return uerrors.NewUnknown(err, fmt.Sprintf("creating session directory %s", c.SessionDir))
	}
	return nil
}
