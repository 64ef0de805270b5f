// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package escape_test

import (
	"testing"

	"github.com/creachadair/jstep/internal/escape"
	"go4.org/mem"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		in   byte
		want byte
		ok   bool
	}{
		{'r', '\r', true},
		{'n', '\n', true},
		{'t', '\t', true},
		{'\\', '\\', true},
		{'"', '"', true},
		{'u', 0, false},
		{'/', 0, false},
		{'b', 0, false},
		{0, 0, false},
	}
	for _, test := range tests {
		got, ok := escape.Decode(test.in)
		if got != test.want || ok != test.ok {
			t.Errorf("Decode(%q): got (%q, %v), want (%q, %v)", test.in, got, ok, test.want, test.ok)
		}
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", `""`},
		{"abc", `"abc"`},
		{"a\tb\nc\r", `"a\tb\nc\r"`},
		{`say "hi" \o/`, `"say \"hi\" \\o/"`},
		{"\x00\x1f", `"\x00\x1f"`},
		{"\xff", `"\xff"`},
		{"Bahnsteig ü", `"Bahnsteig ü"`},
	}
	for _, test := range tests {
		if got := escape.Quote(mem.S(test.input)); got != test.want {
			t.Errorf("Quote(%q): got %#q, want %#q", test.input, got, test.want)
		}
	}
	if got := escape.QuoteByte('x'); got != `"x"` {
		t.Errorf("QuoteByte('x'): got %#q, want %#q", got, `"x"`)
	}
}
