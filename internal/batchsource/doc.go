// Package batchsource reads shot records from spreadsheets.
//
// The first non-blank row is the header. Recognized columns, matched without
// regard to case, spacing, or underscores: SHOW, SHOT CODE, EP, SEQ, SHOT,
// DESCRIPTION, DURATION. Either SHOT CODE or SHOT must be present.
package batchsource
