package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DATABASE", "filedrop")
	t.Setenv("DB_USER", "filedrop")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Expected default port 3000, got %s", cfg.Port)
	}
	if cfg.DBType != "mysql" {
		t.Errorf("Expected default db type mysql, got %s", cfg.DBType)
	}
	if cfg.DBConnectionLimit != 5 {
		t.Errorf("Expected default connection limit 5, got %d", cfg.DBConnectionLimit)
	}
	if cfg.UploadDir != "files" {
		t.Errorf("Expected default upload dir files, got %s", cfg.UploadDir)
	}
	if cfg.SessionTTL != 1440 {
		t.Errorf("Expected default session TTL 1440, got %d", cfg.SessionTTL)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	t.Setenv("DB_DATABASE", "")
	t.Setenv("DB_USER", "filedrop")

	if _, err := Load(); err == nil {
		t.Error("Expected Load to fail without DB_DATABASE")
	}
}

func TestLoadRequiresUserForServerDatabases(t *testing.T) {
	t.Setenv("DB_DATABASE", "filedrop")
	t.Setenv("DB_USER", "")

	if _, err := Load(); err == nil {
		t.Error("Expected Load to fail without DB_USER for mysql")
	}

	// SQLite needs no account
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_DATABASE", ":memory:")
	if _, err := Load(); err != nil {
		t.Errorf("Expected sqlite config to load, got: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DATABASE", "filedrop")
	t.Setenv("DB_USER", "filedrop")
	t.Setenv("PORT", "8080")
	t.Setenv("DB_CONNECTION_LIMIT", "20")
	t.Setenv("SESSION_TTL_MINUTES", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.DBConnectionLimit != 20 {
		t.Errorf("Expected connection limit 20, got %d", cfg.DBConnectionLimit)
	}
	if cfg.SessionTTL != 30 {
		t.Errorf("Expected session TTL 30, got %d", cfg.SessionTTL)
	}

	// Malformed integers fall back to the default
	t.Setenv("DB_CONNECTION_LIMIT", "many")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBConnectionLimit != 5 {
		t.Errorf("Expected fallback connection limit 5, got %d", cfg.DBConnectionLimit)
	}
}
