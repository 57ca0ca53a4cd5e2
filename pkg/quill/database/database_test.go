package database

import (
	"path/filepath"
	"testing"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		driver string
		name   string
	}{
		{"", "sqlite"},
		{"sqlite", "sqlite"},
		{"postgres", "postgres"},
		{"mysql", "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := Dialector(tt.driver, "dsn")
			if err != nil {
				t.Fatalf("Dialector(%q) failed: %v", tt.driver, err)
			}
			if d.Name() != tt.name {
				t.Errorf("Expected dialector %s, got %s", tt.name, d.Name())
			}
		})
	}
}

func TestDialectorUnknown(t *testing.T) {
	if _, err := Dialector("oracle", "dsn"); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestConnectSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.db")
	if err := Connect("sqlite", path); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if GetDB() == nil {
		t.Fatal("Expected database to be set")
	}
	if err := GetDB().Exec("SELECT 1").Error; err != nil {
		t.Errorf("Expected query to succeed: %v", err)
	}
}
