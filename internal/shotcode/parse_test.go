package shotcode_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shotsync/internal/services"
	"shotsync/internal/shotcode"
)

func TestParseRuleTable(t *testing.T) {
	cases := []struct {
		raw  string
		want shotcode.Identity
	}{
		{"EP04_S003_0010", shotcode.Identity{Episode: "EP04", Sequence: "S003", Shot: "0010"}},
		{"S003_0010", shotcode.Identity{Sequence: "S003", Shot: "0010"}},
		{"0010", shotcode.Identity{Shot: "0010"}},
		{"  S003_0010 ", shotcode.Identity{Sequence: "S003", Shot: "0010"}},
	}
	for _, tc := range cases {
		got, err := shotcode.Parse(tc.raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.raw, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", tc.raw, diff)
		}
	}
}

func TestParseRejectsMalformedCodes(t *testing.T) {
	for _, raw := range []string{"", "   ", "EP04_S003_0010_X", "A__B", "_0010", "S003_", "A_ _B", "S/003_0010", "EP04_.._0010"} {
		_, err := shotcode.Parse(raw)
		if err == nil {
			t.Fatalf("Parse(%q) expected error", raw)
		}
		if !errors.Is(err, services.ErrMalformedShotCode) {
			t.Fatalf("Parse(%q) expected ErrMalformedShotCode, got %v", raw, err)
		}
		if services.StageOf(err) != services.StageParse {
			t.Fatalf("Parse(%q) expected parse stage, got %q", raw, services.StageOf(err))
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	identities := []shotcode.Identity{
		{Shot: "0010"},
		{Sequence: "S003", Shot: "0010"},
		{Episode: "EP04", Sequence: "S003", Shot: "0010"},
		{Episode: "E1", Sequence: "SQ", Shot: "A"},
	}
	for _, id := range identities {
		if err := id.Validate(); err != nil {
			t.Fatalf("Validate(%+v): %v", id, err)
		}
		got, err := shotcode.Parse(id.Code())
		if err != nil {
			t.Fatalf("Parse(%q): %v", id.Code(), err)
		}
		if diff := cmp.Diff(id, got); diff != "" {
			t.Fatalf("round trip mismatch for %q (-want +got):\n%s", id.Code(), diff)
		}
		if got.Depth() != len(id.Components()) {
			t.Fatalf("unexpected depth %d for %q", got.Depth(), id.Code())
		}
	}
}

func TestParseForShowScopesIdentity(t *testing.T) {
	id, err := shotcode.ParseForShow(" GEN ", "EP03_S001_0010")
	if err != nil {
		t.Fatalf("ParseForShow: %v", err)
	}
	if id.Show != "GEN" {
		t.Fatalf("expected show GEN, got %q", id.Show)
	}
	if id.String() != "GEN/EP03_S001_0010" {
		t.Fatalf("unexpected string form %q", id.String())
	}
}

func TestNewIdentityEnforcesInvariants(t *testing.T) {
	cases := []struct {
		name                    string
		episode, sequence, shot string
	}{
		{"missing shot", "", "S003", ""},
		{"episode without sequence", "EP04", "", "0010"},
		{"separator in component", "", "S_003", "0010"},
		{"padded component", "", " S003", "0010"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := shotcode.NewIdentity("GEN", tc.episode, tc.sequence, tc.shot)
			if !errors.Is(err, services.ErrMalformedShotCode) {
				t.Fatalf("expected ErrMalformedShotCode, got %v", err)
			}
		})
	}

	id, err := shotcode.NewIdentity("GEN", "EP04", "S003", "0010")
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	if id.Code() != "EP04_S003_0010" {
		t.Fatalf("unexpected code %q", id.Code())
	}
}
