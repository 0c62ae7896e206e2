package phone

import (
	"errors"
	"math/rand"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"(555) 123-4567", "+15551234567", true},
		{"555.123.4567", "+15551234567", true},
		{"1-555-123-4567", "+15551234567", true},
		{"15551234567", "+15551234567", true},
		{"+1 (555) 123-4567", "+15551234567", true},
		{"+15551234567", "+15551234567", true},
		{"  5551234567  ", "+15551234567", true},
		{"12345", "", false},
		{"", "", false},
		{"   ", "", false},
		{"+5551234567", "", false},
		{"+25551234567", "", false},
		{"+155512345678", "", false},
		{"25551234567", "", false},
		{"555123456789", "", false},
		{"call me", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizeOutputShape(t *testing.T) {
	const alphabet = "0123456789+-() .xa"
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		n := rng.Intn(20)
		buf := make([]byte, n)
		for j := range buf {
			buf[j] = alphabet[rng.Intn(len(alphabet))]
		}
		got, ok := Normalize(string(buf))
		if !ok {
			if got != "" {
				t.Fatalf("rejected input %q returned %q", buf, got)
			}
			continue
		}
		if !IsCanonical(got) {
			t.Fatalf("Normalize(%q) = %q, not +1 followed by 10 digits", buf, got)
		}
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("12345"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
	got, err := Parse("555 123 4567")
	if err != nil || got != "+15551234567" {
		t.Fatalf("Parse = %q, %v", got, err)
	}
}

func TestIsCanonical(t *testing.T) {
	if !IsCanonical("+15551234567") {
		t.Fatal("expected canonical")
	}
	for _, v := range []string{"15551234567", "+1555123456", "+1555123456a", "+25551234567"} {
		if IsCanonical(v) {
			t.Fatalf("IsCanonical(%q) should be false", v)
		}
	}
}
