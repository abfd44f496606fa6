package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidMigrationVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"0001_init", true},
		{"0420_add_template_counts", true},
		{"1_init", false},
		{"0001", false},
		{"0001_", false},
		{"abcd_init", false},
		{"00001_init", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := validMigrationVersion(tt.version); got != tt.want {
			t.Errorf("validMigrationVersion(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestMigrationFilesAreWellNamed(t *testing.T) {
	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	found := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		found++
		version := strings.TrimSuffix(name, ".up.sql")
		if !validMigrationVersion(version) {
			t.Errorf("migration %s does not match NNNN_description.up.sql", name)
		}
	}
	if found == 0 {
		t.Fatal("no migrations discovered")
	}
}
