package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local filesystem locations.
type Paths struct {
	ShowsDir          string `toml:"shows_dir"`
	LogDir            string `toml:"log_dir"`
	ReportDir         string `toml:"report_dir"`
	StateDir          string `toml:"state_dir"`
	TemplateSourceDir string `toml:"template_source_dir"`
}

// Tracker contains connection settings for the production-tracking server.
type Tracker struct {
	BaseURL        string   `toml:"base_url"`
	Token          string   `toml:"token"`
	RequestTimeout int      `toml:"request_timeout"`
	StrictMatching bool     `toml:"strict_matching"`
	TaskTypes      []string `toml:"task_types"`
}

// Layout controls how the seed working file is derived from the show template.
type Layout struct {
	TemplatePath     string `toml:"template_path"`
	Placeholder      string `toml:"placeholder"`
	Extension        string `toml:"extension"`
	StripGroupMarker string `toml:"strip_group_marker"`
}

// Notifications configures run summaries pushed to ntfy.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shotsync.
//
// Configuration sections by subsystem:
//   - Paths: show root, logs, run reports, and state (history DB + run lock)
//   - Tracker: production-tracking server URL, token, and matching policy
//   - Layout: working-file template location and substitution rules
//   - Notifications: optional ntfy topic for run summaries
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tracker       Tracker       `toml:"tracker"`
	Layout        Layout        `toml:"layout"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shotsync/config.toml")
}

// Load reads the configuration at path, or the first existing default
// location when path is empty, then normalizes and validates it. It returns
// the config, the path it resolved, and whether that file existed. Unknown
// keys are rejected so typos surface instead of silently using defaults.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: unknown keys:\n%s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath picks the explicit path when given; otherwise the first
// of the per-user path and ./shotsync.toml that exists, falling back to the
// per-user path.
func resolveConfigPath(path string) (string, bool, error) {
	var candidates []string
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		candidates = []string{expanded}
	} else {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		projectPath, err := filepath.Abs("shotsync.toml")
		if err != nil {
			return "", false, err
		}
		candidates = []string{defaultPath, projectPath}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return candidates[0], false, nil
}

// EnsureDirectories creates the directories shotsync writes its own state to.
// The show root is left alone; shot folders are created on demand.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.ReportDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeout returns the per-call tracker timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Tracker.RequestTimeout) * time.Second
}

// LogPath returns the log file written next to stderr output, or "" when
// file logging is disabled.
func (c *Config) LogPath() string {
	if c.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "shotsync.log")
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the location of the batch run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "shotsync.lock")
}

// expandPath resolves a leading "~" to the home directory and makes the
// result absolute. Empty input stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the same "~" and absolute-path rules used for config
// values.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
