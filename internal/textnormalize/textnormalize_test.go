package textnormalize

import (
	"reflect"
	"testing"
)

func TestTokens(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"   ", []string{}},
		{"Desk Lamp", []string{"desk", "lamp"}},
		{"  anti-aging   SERUM!! ", []string{"antiaging", "serum"}},
		{"!!! ?? 42", []string{"42"}},
		{"café\tlatte", []string{"caf", "latte"}},
	}
	for _, tc := range cases {
		got := Tokens(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokens(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestTokenSet(t *testing.T) {
	set := TokenSet("Eden Skin Serum. Hydrating serum")
	for _, want := range []string{"eden", "skin", "serum", "hydrating"} {
		if _, ok := set[want]; !ok {
			t.Fatalf("expected %q in token set %v", want, set)
		}
	}
	if len(set) != 4 {
		t.Fatalf("expected 4 distinct tokens, got %d", len(set))
	}
}

func TestHeavy(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"  Crème Co.  ":   "creme co",
		"HOME & Garden":   "home garden",
		"Travel--Gear///": "travel gear",
	}
	for in, want := range cases {
		if got := Heavy(in); got != want {
			t.Errorf("Heavy(%q) = %q, want %q", in, got, want)
		}
	}
}
