package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable. Tracker credentials are checked
// separately by ValidateTracker because offline commands do not need them.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLayout(); err != nil {
		return err
	}
	if c.Tracker.RequestTimeout <= 0 {
		return errors.New("tracker.request_timeout must be positive (seconds)")
	}
	return nil
}

// ValidateTracker ensures the tracker connection settings are present.
func (c *Config) ValidateTracker() error {
	if c.Tracker.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/shotsync/config.toml"
		}
		return fmt.Errorf("tracker.base_url is required. Set SHOTSYNC_TRACKER_URL or edit %s (create with 'shotsync config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Tracker.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("tracker.base_url %q must be an absolute http(s) URL", c.Tracker.BaseURL)
	}
	if c.Tracker.Token == "" {
		return errors.New("tracker.token is required. Set SHOTSYNC_TRACKER_TOKEN or KITSU_TOKEN")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ShowsDir == "" {
		return errors.New("paths.shows_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateLayout() error {
	if filepath.IsAbs(c.Layout.TemplatePath) {
		return errors.New("layout.template_path must be relative to the show directory")
	}
	if strings.ContainsAny(c.Layout.Extension, `/\`) {
		return fmt.Errorf("layout.extension %q must not contain path separators", c.Layout.Extension)
	}
	if strings.TrimSpace(c.Layout.Placeholder) == "" {
		return errors.New("layout.placeholder must not be blank")
	}
	return nil
}
