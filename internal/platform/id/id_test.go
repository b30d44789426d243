package id

import (
	"strings"
	"testing"
)

func TestNew_Format(t *testing.T) {
	generated, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(generated) != 26 {
		t.Errorf("len = %d, want 26", len(generated))
	}
	if generated != strings.ToLower(generated) {
		t.Errorf("id %q is not lowercase", generated)
	}
	if strings.Contains(generated, "=") {
		t.Errorf("id %q contains padding", generated)
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		generated, err := New()
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, ok := seen[generated]; ok {
			t.Fatalf("duplicate id %q", generated)
		}
		seen[generated] = struct{}{}
	}
}
