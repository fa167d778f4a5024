package shotcode

import (
	"fmt"
	"strings"

	"shotsync/internal/services"
)

// MaxParts is the deepest hierarchy a shot code may describe.
const MaxParts = 3

// Parse splits raw on underscores and maps the parts onto an Identity:
//
//	A_B_C → episode=A, sequence=B, shot=C
//	A_B   → sequence=A, shot=B
//	A     → shot=A
//
// Codes with more than three parts, or with any part empty after trimming,
// fail with services.ErrMalformedShotCode.
func Parse(raw string) (Identity, error) {
	parts := strings.Split(strings.TrimSpace(raw), Separator)
	if len(parts) == 0 || len(parts) > MaxParts {
		return Identity{}, services.Wrap(services.ErrMalformedShotCode, services.StageParse, "parse shot code",
			fmt.Sprintf("%q has %d parts, expected 1 to %d", raw, len(parts), MaxParts), nil)
	}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Identity{}, services.Wrap(services.ErrMalformedShotCode, services.StageParse, "parse shot code",
				fmt.Sprintf("%q has an empty part at position %d", raw, i+1), nil)
		}
		parts[i] = part
	}

	var id Identity
	switch len(parts) {
	case 3:
		id = Identity{Episode: parts[0], Sequence: parts[1], Shot: parts[2]}
	case 2:
		id = Identity{Sequence: parts[0], Shot: parts[1]}
	default:
		id = Identity{Shot: parts[0]}
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// ParseForShow parses raw and scopes the result to show.
func ParseForShow(show, raw string) (Identity, error) {
	id, err := Parse(raw)
	if err != nil {
		return Identity{}, err
	}
	return id.WithShow(strings.TrimSpace(show)), nil
}
