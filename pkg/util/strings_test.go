package util

import (
	"reflect"
	"testing"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain  headline\n", "plain headline"},
		{"<p>Apple <b>beats</b> estimates</p>", "Apple beats estimates"},
		{"Q&amp;A with the CEO", "Q&A with the CEO"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"AAPL", "DELL", "AAPL", "HPQ", "DELL"})
	want := []string{"AAPL", "DELL", "HPQ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UniqueStrings = %v, want %v", got, want)
	}
}

func TestNormalizeTicker(t *testing.T) {
	if got := NormalizeTicker("  aapl "); got != "AAPL" {
		t.Fatalf("NormalizeTicker = %q", got)
	}
}
