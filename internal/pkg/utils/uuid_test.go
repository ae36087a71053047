package utils

import (
	"strings"
	"testing"
)

func TestGenerateUUID(t *testing.T) {
	id, err := GenerateUUID()
	if err != nil {
		t.Fatalf("GenerateUUID() error = %v", err)
	}
	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Errorf("GenerateUUID() = %v, want standard 36-char format", id)
	}

	other, err := GenerateUUID()
	if err != nil {
		t.Fatalf("GenerateUUID() error = %v", err)
	}
	if id == other {
		t.Errorf("GenerateUUID() returned duplicate value %v", id)
	}
}

func TestGenerateSimpleUUID(t *testing.T) {
	id, err := GenerateSimpleUUID()
	if err != nil {
		t.Fatalf("GenerateSimpleUUID() error = %v", err)
	}
	if len(id) != 32 || strings.Contains(id, "-") {
		t.Errorf("GenerateSimpleUUID() = %v, want 32 hex chars without hyphens", id)
	}
}
