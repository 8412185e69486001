package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.log-config"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Level != "info" || cfg.Pretty {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadParsesKeyValueLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db-sync-log.xml")
	content := "level: debug\npretty: true\n# a comment\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Level != "debug" || !cfg.Pretty {
		t.Fatalf("got %+v, want level=debug pretty=true", cfg)
	}
}
