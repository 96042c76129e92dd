package ui

import "testing"

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0"},
		{999, "$999"},
		{1000, "$1.000"},
		{2751.5, "$2.752"},
		{1234567, "$1.234.567"},
		{-1500, "-$1.500"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"Proteína", 20, "Proteína"},
		{"Barra proteica chocolate", 10, "Barra pro…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestNextThemeCycles(t *testing.T) {
	if got := NextTheme("Iron"); got != "Chalk" {
		t.Fatalf("NextTheme(Iron) = %q", got)
	}
	if got := NextTheme("Chalk"); got != "Iron" {
		t.Fatalf("NextTheme(Chalk) = %q", got)
	}
	if got := NextTheme("missing"); got != "Iron" {
		t.Fatalf("NextTheme(missing) = %q", got)
	}
	if GetTheme("missing").Name != "Iron" {
		t.Fatalf("GetTheme fallback is not Iron")
	}
}
