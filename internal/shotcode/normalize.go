package shotcode

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"shotsync/internal/services"
)

// Fields is one spreadsheet or CLI record before normalization. Code holds a
// combined shot code; Episode, Sequence, and Shot hold split columns. Any of
// them may be blank.
type Fields struct {
	Code     string `json:"code,omitempty"`
	Episode  string `json:"episode,omitempty"`
	Sequence string `json:"sequence,omitempty"`
	Shot     string `json:"shot,omitempty"`
}

// IsZero reports whether no field carries a value.
func (f Fields) IsZero() bool {
	return strings.TrimSpace(f.Code+f.Episode+f.Sequence+f.Shot) == ""
}

// Summary renders the raw fields for reports when normalization fails.
func (f Fields) Summary() string {
	if strings.TrimSpace(f.Code) != "" {
		return strings.TrimSpace(f.Code)
	}
	parts := make([]string, 0, 3)
	for _, pair := range [][2]string{{"ep", f.Episode}, {"seq", f.Sequence}, {"shot", f.Shot}} {
		if v := strings.TrimSpace(pair[1]); v != "" {
			parts = append(parts, pair[0]+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	separatorRun  = regexp.MustCompile(`_{2,}`)
)

// Clean normalizes one field of dirty input: Unicode NFC, full-width forms
// folded to ASCII, outer whitespace trimmed, inner whitespace runs and hyphens
// turned into underscores, repeated underscores collapsed, and leading or
// trailing underscores dropped.
func Clean(value string) string {
	value = norm.NFC.String(value)
	value = width.Fold.String(value)
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = whitespaceRun.ReplaceAllString(value, Separator)
	value = strings.ReplaceAll(value, "-", Separator)
	value = separatorRun.ReplaceAllString(value, Separator)
	return strings.Trim(value, Separator)
}

// Normalize rebuilds a shot code from f. A non-blank combined Code wins;
// otherwise the cleaned Episode, Sequence, and Shot fields present are joined
// in that order. It fails with services.ErrMissingShotIdentity when no
// shot-level value remains after cleaning.
func Normalize(f Fields) (string, error) {
	if code := Clean(f.Code); code != "" {
		return code, nil
	}

	shot := Clean(f.Shot)
	if shot == "" {
		return "", services.Wrap(services.ErrMissingShotIdentity, services.StageParse, "normalize record",
			"no shot code or shot column value", nil)
	}

	parts := make([]string, 0, 3)
	if ep := Clean(f.Episode); ep != "" {
		parts = append(parts, ep)
	}
	if seq := Clean(f.Sequence); seq != "" {
		parts = append(parts, seq)
	}
	parts = append(parts, shot)
	return strings.Join(parts, Separator), nil
}
