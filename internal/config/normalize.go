package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTracker()
	c.normalizeLayout()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ShowsDir) == "" {
		if value, ok := os.LookupEnv("SHOTSYNC_SHOWS_DIR"); ok {
			c.Paths.ShowsDir = strings.TrimSpace(value)
		}
	}
	if c.Paths.ShowsDir, err = expandPath(strings.TrimSpace(c.Paths.ShowsDir)); err != nil {
		return fmt.Errorf("paths.shows_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		c.Paths.ReportDir = defaultReportDir
	}
	if c.Paths.ReportDir, err = expandPath(strings.TrimSpace(c.Paths.ReportDir)); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.TemplateSourceDir, err = expandPath(strings.TrimSpace(c.Paths.TemplateSourceDir)); err != nil {
		return fmt.Errorf("paths.template_source_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTracker() {
	c.Tracker.BaseURL = strings.TrimRight(strings.TrimSpace(c.Tracker.BaseURL), "/")
	if c.Tracker.BaseURL == "" {
		if value, ok := os.LookupEnv("SHOTSYNC_TRACKER_URL"); ok {
			c.Tracker.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.Tracker.Token = strings.TrimSpace(c.Tracker.Token)
	if c.Tracker.Token == "" {
		if value, ok := os.LookupEnv("SHOTSYNC_TRACKER_TOKEN"); ok {
			c.Tracker.Token = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("KITSU_TOKEN"); ok {
			c.Tracker.Token = strings.TrimSpace(value)
		}
	}
	if c.Tracker.RequestTimeout == 0 {
		c.Tracker.RequestTimeout = defaultTrackerTimeout
	}
	if len(c.Tracker.TaskTypes) > 0 {
		types := make([]string, 0, len(c.Tracker.TaskTypes))
		seen := make(map[string]struct{}, len(c.Tracker.TaskTypes))
		for _, name := range c.Tracker.TaskTypes {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, exists := seen[name]; exists {
				continue
			}
			seen[name] = struct{}{}
			types = append(types, name)
		}
		c.Tracker.TaskTypes = types
	}
}

func (c *Config) normalizeLayout() {
	c.Layout.TemplatePath = strings.TrimSpace(c.Layout.TemplatePath)
	if c.Layout.TemplatePath == "" {
		c.Layout.TemplatePath = defaultTemplatePath
	}
	if c.Layout.Placeholder == "" {
		c.Layout.Placeholder = defaultPlaceholder
	}
	c.Layout.Extension = strings.TrimPrefix(strings.TrimSpace(c.Layout.Extension), ".")
	if c.Layout.Extension == "" {
		c.Layout.Extension = defaultExtension
	}
	c.Layout.StripGroupMarker = strings.TrimSpace(c.Layout.StripGroupMarker)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SHOTSYNC_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
