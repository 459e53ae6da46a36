package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.Storage.Backend = "sqlite"
	cfg.Replies.Probability = 1
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want %q", loaded.Storage.Backend, "sqlite")
	}
	if loaded.Replies.Probability != 1 {
		t.Errorf("Replies.Probability = %v, want 1", loaded.Replies.Probability)
	}
}

func TestLoadKeepsDefaultsForAbsentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "default_profile = \"home\"\n\n[replies]\nmax_delay = \"5s\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "file")
	}
	if !cfg.Replies.Enabled {
		t.Error("Replies.Enabled = false, want default true")
	}
	if cfg.Replies.MinDelay != time.Second {
		t.Errorf("Replies.MinDelay = %v, want 1s", cfg.Replies.MinDelay)
	}
	if cfg.Replies.MaxDelay != 5*time.Second {
		t.Errorf("Replies.MaxDelay = %v, want 5s", cfg.Replies.MaxDelay)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(StorageEnv, "sqlite")
	cfg := Default()
	ApplyEnv(cfg)
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "sqlite")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
