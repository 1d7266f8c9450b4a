package normalize

import (
	"encoding/json"
	"testing"
)

type namedMap map[string]interface{}
type namedSlice []interface{}

func TestNumberCoercesStoredValues(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  float64
	}{
		{"float", 12.5, 12.5},
		{"int64", int64(30), 30},
		{"int32", int32(7), 7},
		{"numeric string", "19.90", 19.9},
		{"padded string", "  8 ", 8},
		{"comma decimal", "19,90", 19.9},
		{"json number", json.Number("4.25"), 4.25},
		{"garbage string", "abc", -1},
		{"empty string", "", -1},
		{"nil", nil, -1},
		{"bool", true, -1},
		{"nan string", "NaN", -1},
		{"inf string", "+Inf", -1},
		{"slice", []string{"1"}, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Number(tc.value, -1); got != tc.want {
				t.Fatalf("Number(%v) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestIntTruncatesAndFallsBack(t *testing.T) {
	if got := Int(3.9, 0); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := Int("12", 0); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	if got := Int("x", 5); got != 5 {
		t.Fatalf("expected fallback 5, got %d", got)
	}
}

func TestStringsAcceptsDriverSliceTypes(t *testing.T) {
	got := Strings(namedSlice{"anel", 3, "prata"})
	if len(got) != 2 || got[0] != "anel" || got[1] != "prata" {
		t.Fatalf("unexpected strings %v", got)
	}
	if got := Strings(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestMapAcceptsNamedMaps(t *testing.T) {
	m, ok := Map(namedMap{"day": int32(3)})
	if !ok {
		t.Fatalf("expected named map to be accepted")
	}
	if Int(m["day"], 0) != 3 {
		t.Fatalf("unexpected map content %v", m)
	}
	if _, ok := Map("nope"); ok {
		t.Fatalf("expected string to be rejected")
	}
}

func TestBoolAndString(t *testing.T) {
	if !Bool(true) || !Bool("true") || Bool("nope") || Bool(1) {
		t.Fatalf("unexpected Bool coercion")
	}
	if String(12, "fallback") != "fallback" {
		t.Fatalf("expected fallback for non-string")
	}
	if String("colar", "") != "colar" {
		t.Fatalf("expected string passthrough")
	}
}
