package util

import (
	"strings"
	"testing"
)

func TestNewIDCarriesPrefix(t *testing.T) {
	id := NewID(IDTask)
	if !strings.HasPrefix(id, "tsk_") {
		t.Fatalf("id = %q, want tsk_ prefix", id)
	}
	if len(id) != len("tsk_")+32 {
		t.Fatalf("id length = %d, want %d", len(id), len("tsk_")+32)
	}
	if NewID(IDTask) == id {
		t.Fatal("consecutive ids should differ")
	}
}

func TestNewIDBareWhenUnprefixed(t *testing.T) {
	id := NewID("")
	if len(id) != 32 || strings.Contains(id, "_") {
		t.Fatalf("bare id = %q, want 32 hex chars", id)
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{NewID(IDProject), IDProject},
		{"sub_abc123", IDSubtask},
		{"noprefix", ""},
		{"_leading", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Prefix(tt.id); got != tt.want {
			t.Errorf("Prefix(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
