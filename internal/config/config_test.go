package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, expected %q", cfg.Store.Driver, "sqlite")
	}
	if cfg.Store.BatchWriteSize != 25 {
		t.Errorf("Store.BatchWriteSize = %d, expected 25", cfg.Store.BatchWriteSize)
	}
	if cfg.Store.BatchGetSize != 100 {
		t.Errorf("Store.BatchGetSize = %d, expected 100", cfg.Store.BatchGetSize)
	}
	if GlobalConfig != cfg {
		t.Error("GlobalConfig should point at the loaded config")
	}
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("store:\n  driver: dynamodb\n  table: Tracker\nserver:\n  port: \"9090\"\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Store.Driver != "dynamodb" {
		t.Errorf("Store.Driver = %q, expected %q", cfg.Store.Driver, "dynamodb")
	}
	if cfg.Store.Table != "Tracker" {
		t.Errorf("Store.Table = %q, expected %q", cfg.Store.Table, "Tracker")
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "9090")
	}
	// Fields absent from the file keep their defaults.
	if cfg.Store.BatchWriteSize != 25 {
		t.Errorf("Store.BatchWriteSize = %d, expected 25", cfg.Store.BatchWriteSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TABLE_NAME", "FromEnv")
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Store.Table != "FromEnv" {
		t.Errorf("Store.Table = %q, expected %q", cfg.Store.Table, "FromEnv")
	}
	if cfg.Store.Endpoint != "http://localhost:8000" {
		t.Errorf("Store.Endpoint = %q, expected %q", cfg.Store.Endpoint, "http://localhost:8000")
	}
	if cfg.Auth.Secret != "s3cret" {
		t.Errorf("Auth.Secret = %q, expected %q", cfg.Auth.Secret, "s3cret")
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		url      string
		addr     string
		password string
		db       int
	}{
		{"redis://localhost:6379", "localhost:6379", "", 0},
		{"redis://:pw@cache:6380/2", "cache:6380", "pw", 2},
		{"redis://user:pw@cache:6380", "cache:6380", "pw", 0},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.parseRedisURL(tt.url)
		if cfg.Redis.Addr != tt.addr {
			t.Errorf("parseRedisURL(%q) Addr = %q, expected %q", tt.url, cfg.Redis.Addr, tt.addr)
		}
		if cfg.Redis.Password != tt.password {
			t.Errorf("parseRedisURL(%q) Password = %q, expected %q", tt.url, cfg.Redis.Password, tt.password)
		}
		if cfg.Redis.DB != tt.db {
			t.Errorf("parseRedisURL(%q) DB = %d, expected %d", tt.url, cfg.Redis.DB, tt.db)
		}
	}
}
