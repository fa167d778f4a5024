package shotcode

import (
	"fmt"
	"strings"

	"shotsync/internal/services"
)

// Separator joins identity components into a shot code.
const Separator = "_"

// Identity is the parsed hierarchy for one shot. Empty Episode or Sequence
// means the component is absent. Show is carried along for path building and
// project lookup but is never part of the code.
type Identity struct {
	Show     string `json:"show,omitempty"`
	Episode  string `json:"episode,omitempty"`
	Sequence string `json:"sequence,omitempty"`
	Shot     string `json:"shot"`
}

// NewIdentity builds an Identity and checks its invariants.
func NewIdentity(show, episode, sequence, shot string) (Identity, error) {
	id := Identity{Show: show, Episode: episode, Sequence: sequence, Shot: shot}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Validate reports whether the identity can be rendered as a shot code that
// parses back to itself.
func (id Identity) Validate() error {
	if strings.TrimSpace(id.Shot) == "" {
		return services.Wrap(services.ErrMalformedShotCode, services.StageParse, "validate identity", "shot is required", nil)
	}
	if id.Episode != "" && id.Sequence == "" {
		return services.Wrap(services.ErrMalformedShotCode, services.StageParse, "validate identity",
			fmt.Sprintf("episode %q requires a sequence", id.Episode), nil)
	}
	for _, part := range []string{id.Episode, id.Sequence, id.Shot} {
		if part != strings.TrimSpace(part) || strings.Contains(part, Separator) {
			return services.Wrap(services.ErrMalformedShotCode, services.StageParse, "validate identity",
				fmt.Sprintf("component %q must not contain %q or surrounding whitespace", part, Separator), nil)
		}
		if strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return services.Wrap(services.ErrMalformedShotCode, services.StageParse, "validate identity",
				fmt.Sprintf("component %q is not a valid directory name", part), nil)
		}
	}
	return nil
}

// Depth returns how many components are present (1 to 3).
func (id Identity) Depth() int {
	return len(id.Components())
}

// Components returns the present components in episode, sequence, shot order.
func (id Identity) Components() []string {
	parts := make([]string, 0, 3)
	if id.Episode != "" {
		parts = append(parts, id.Episode)
	}
	if id.Sequence != "" {
		parts = append(parts, id.Sequence)
	}
	return append(parts, id.Shot)
}

// Code reconstructs the full shot code, e.g. EP04_S003_0010.
func (id Identity) Code() string {
	return strings.Join(id.Components(), Separator)
}

// WithShow returns a copy of id scoped to show.
func (id Identity) WithShow(show string) Identity {
	id.Show = show
	return id
}

func (id Identity) String() string {
	if id.Show == "" {
		return id.Code()
	}
	return id.Show + "/" + id.Code()
}
