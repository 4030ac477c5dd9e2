package order

import (
	"regexp"
	"testing"
	"time"
)

var numberRE = regexp.MustCompile(`^ORD-\d{12}-[0-9A-F]{4}$`)

func TestNewNumberFormat(t *testing.T) {
	now := time.Date(2026, 2, 23, 15, 51, 0, 0, time.UTC)
	n := NewNumber(now)

	if !numberRE.MatchString(n) {
		t.Fatalf("number %q does not match expected shape", n)
	}
	if n[:16] != "ORD-202602231551" {
		t.Fatalf("timestamp part wrong: %q", n)
	}
}

func TestNewNumberVaries(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		seen[NewNumber(now)] = struct{}{}
	}
	// The random suffix can collide, but 32 identical draws cannot happen.
	if len(seen) < 2 {
		t.Fatalf("expected varying suffixes, got %d distinct of 32", len(seen))
	}
}

func TestLooksLikeNumber(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"ORD-202602231551-04FD", true},
		{"ORD-x", true},
		{"ORD-", false},
		{"202602231551", false},
		{"42", false},
		{"", false},
		{"ord-202602231551-04FD", false},
	}
	for _, tc := range cases {
		if got := LooksLikeNumber(tc.in); got != tc.want {
			t.Errorf("LooksLikeNumber(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
