package shotcode_test

import (
	"errors"
	"testing"

	"shotsync/internal/services"
	"shotsync/internal/shotcode"
)

func TestNormalizeCombinedCode(t *testing.T) {
	got, err := shotcode.Normalize(shotcode.Fields{Code: " EP-04 _ S 003_0010 "})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "EP_04_S_003_0010" {
		t.Fatalf("unexpected cleaned code %q", got)
	}
}

func TestNormalizeSplitFields(t *testing.T) {
	cases := []struct {
		name   string
		fields shotcode.Fields
		want   string
	}{
		{"all three", shotcode.Fields{Episode: "EP04", Sequence: "S003", Shot: "0010"}, "EP04_S003_0010"},
		{"sequence and shot", shotcode.Fields{Sequence: " S003\t", Shot: "0010"}, "S003_0010"},
		{"shot only", shotcode.Fields{Shot: "0010"}, "0010"},
		{"blank code falls back", shotcode.Fields{Code: "   ", Sequence: "S003", Shot: "0020"}, "S003_0020"},
		{"code wins over split", shotcode.Fields{Code: "S009_0100", Sequence: "S003", Shot: "0020"}, "S009_0100"},
		{"full width input", shotcode.Fields{Code: "ＥＰ０４＿Ｓ００３＿００１０"}, "EP04_S003_0010"},
		{"hyphenated columns", shotcode.Fields{Episode: "EP-04", Shot: "0010"}, "EP_04_0010"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := shotcode.Normalize(tc.fields)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Normalize = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeMissingShot(t *testing.T) {
	for _, fields := range []shotcode.Fields{
		{},
		{Episode: "EP04", Sequence: "S003"},
		{Shot: " - "},
	} {
		_, err := shotcode.Normalize(fields)
		if !errors.Is(err, services.ErrMissingShotIdentity) {
			t.Fatalf("Normalize(%+v) expected ErrMissingShotIdentity, got %v", fields, err)
		}
	}
}

func TestCleanCollapsesSeparators(t *testing.T) {
	cases := map[string]string{
		"S003__0010":  "S003_0010",
		"S003 - 0010": "S003_0010",
		"\tEP04\t":    "EP04",
		"_0010_":      "0010",
		"":            "",
		"S003\n_0010": "S003_0010",
	}
	for in, want := range cases {
		if got := shotcode.Clean(in); got != want {
			t.Fatalf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFieldsSummary(t *testing.T) {
	if got := (shotcode.Fields{Code: " A_B "}).Summary(); got != "A_B" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := (shotcode.Fields{Episode: "EP04", Shot: "0010"}).Summary(); got != "ep=EP04 shot=0010" {
		t.Fatalf("unexpected summary %q", got)
	}
	if !(shotcode.Fields{Shot: "  "}).IsZero() {
		t.Fatal("expected blank fields to be zero")
	}
}
