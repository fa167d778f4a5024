package services

import (
	"errors"
	"strings"
)

var (
	ErrMalformedShotCode   = errors.New("malformed shot code")
	ErrMissingShotIdentity = errors.New("missing shot identity")
	ErrProjectNotFound     = errors.New("project not found")
	ErrEntityTypeNotFound  = errors.New("entity type not found")
	ErrRemoteUnavailable   = errors.New("remote unavailable")
	ErrRemoteRejected      = errors.New("remote rejected")
	ErrTemplateMissing     = errors.New("template missing")
	ErrAmbiguousMatch      = errors.New("ambiguous match")
	ErrFilesystem          = errors.New("filesystem error")
	ErrConfiguration       = errors.New("configuration error")
)

// Stage names reported with record failures.
const (
	StageParse      = "parse"
	StageLookup     = "lookup"
	StageCreate     = "create"
	StageUpdate     = "update"
	StageFilesystem = "filesystem"
)

var markerKinds = []struct {
	marker error
	kind   string
}{
	{ErrMalformedShotCode, "malformed_shot_code"},
	{ErrMissingShotIdentity, "missing_shot_identity"},
	{ErrProjectNotFound, "project_not_found"},
	{ErrEntityTypeNotFound, "entity_type_not_found"},
	{ErrRemoteUnavailable, "remote_unavailable"},
	{ErrRemoteRejected, "remote_rejected"},
	{ErrTemplateMissing, "template_missing"},
	{ErrAmbiguousMatch, "ambiguous_match"},
	{ErrFilesystem, "filesystem"},
	{ErrConfiguration, "configuration"},
}

// Error carries the pipeline stage and operation that failed alongside an
// optional classification marker and the underlying cause.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Marker != nil {
		parts = append(parts, e.Marker.Error())
	}
	parts = append(parts, buildDetail(e.Stage, e.Operation, e.Message))
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Marker != nil {
		errs = append(errs, e.Marker)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// AtStage annotates err with stage context and keeps whatever marker err
// already carries. A nil err stays nil.
func AtStage(stage, operation string, err error) error {
	if err == nil {
		return nil
	}
	return Wrap(nil, stage, operation, "", err)
}

// StageOf returns the outermost stage recorded on err.
func StageOf(err error) string {
	for err != nil {
		var se *Error
		if !errors.As(err, &se) {
			return ""
		}
		if se.Stage != "" {
			return se.Stage
		}
		err = se.Err
	}
	return ""
}

// Kind returns a stable snake_case label for the first marker found in err,
// or "internal" when err carries none.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, mk := range markerKinds {
		if errors.Is(err, mk.marker) {
			return mk.kind
		}
	}
	return "internal"
}

// Retryable reports whether the caller may retry the failed unit of work.
// Only transport-level failures qualify.
func Retryable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
