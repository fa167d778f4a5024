// Package config loads, normalizes, and validates shotsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHOTSYNC_TRACKER_TOKEN. The Config value is handed to each component's
// constructor explicitly; nothing downstream reads process state on its own.
package config
