// Package logging builds the slog loggers used across shotsync.
//
// Two output formats are supported: a console format meant for terminals
// ("<ts> LEVEL component: message key=value") and JSON with ts, level, msg,
// and source keys. Helpers here keep field names consistent (FieldRunID,
// FieldShotCode, ...) and WarnWithContext makes every warning carry an event
// type, an operator hint, and an impact statement.
package logging
