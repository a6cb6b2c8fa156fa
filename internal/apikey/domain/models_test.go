package domain

import (
	"strings"
	"testing"
)

func TestHashAPIKeyDeterministic(t *testing.T) {
	a := HashAPIKey("tly_secret")
	b := HashAPIKey("tly_secret")
	if a != b {
		t.Fatalf("expected stable hash, got %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == HashAPIKey("tly_other") {
		t.Fatalf("different keys must not collide")
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(key, "tly_") {
		t.Fatalf("expected tly_ prefix, got %q", key)
	}

	other, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if key == other {
		t.Fatalf("expected unique keys")
	}
}
