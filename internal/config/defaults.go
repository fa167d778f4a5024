package config

const (
	defaultShowsDir         = "~/shows"
	defaultLogDir           = "~/.local/share/shotsync/logs"
	defaultReportDir        = "~/.local/share/shotsync/reports"
	defaultStateDir         = "~/.local/share/shotsync"
	defaultTrackerTimeout   = 10
	defaultTemplatePath     = "config/env/nuke_template.nk"
	defaultPlaceholder      = "{SHOT_CODE}"
	defaultExtension        = "nk"
	defaultStripGroupMarker = "SKYFALL_SIGNATURE_GLOBAL"
	defaultNtfyTimeout      = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ShowsDir:  defaultShowsDir,
			LogDir:    defaultLogDir,
			ReportDir: defaultReportDir,
			StateDir:  defaultStateDir,
		},
		Tracker: Tracker{
			RequestTimeout: defaultTrackerTimeout,
		},
		Layout: Layout{
			TemplatePath:     defaultTemplatePath,
			Placeholder:      defaultPlaceholder,
			Extension:        defaultExtension,
			StripGroupMarker: defaultStripGroupMarker,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
