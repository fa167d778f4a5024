package batch

import (
	"strings"

	"shotsync/internal/shotcode"
)

// Record is one input row.
type Record struct {
	// Show overrides the run's default show when set.
	Show        string
	Fields      shotcode.Fields
	Description string
	FrameCount  *int
	// Source locates the record in its input, e.g. "row 4".
	Source string
}

// ShowOr returns the record's show, falling back to def.
func (r Record) ShowOr(def string) string {
	if show := strings.TrimSpace(r.Show); show != "" {
		return show
	}
	return strings.TrimSpace(def)
}
