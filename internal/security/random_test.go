package security

import (
	"strings"
	"testing"
)

func TestRandomGenerator_Length(t *testing.T) {
	g := NewRandomGenerator()
	for _, n := range []int{1, 16, 40, 128} {
		s, err := g.Generate(n)
		if err != nil {
			t.Fatalf("Generate(%d): %v", n, err)
		}
		if len(s) != n {
			t.Errorf("Generate(%d) returned %d characters", n, len(s))
		}
		for _, r := range s {
			if !strings.ContainsRune(tokenAlphabet, r) {
				t.Errorf("Generate(%d) produced character %q outside the alphabet", n, r)
			}
		}
	}
}

func TestRandomGenerator_InvalidLength(t *testing.T) {
	g := NewRandomGenerator()
	if _, err := g.Generate(0); err == nil {
		t.Fatal("Generate(0) should fail")
	}
	if _, err := g.Generate(-5); err == nil {
		t.Fatal("Generate(-5) should fail")
	}
}

func TestRandomGenerator_Distinct(t *testing.T) {
	g := NewRandomGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := g.Generate(40)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if seen[s] {
			t.Fatalf("duplicate token generated: %s", s)
		}
		seen[s] = true
	}
}
