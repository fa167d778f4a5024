// Package history persists batch run reports in SQLite so past runs can be
// listed and inspected after the fact.
package history
