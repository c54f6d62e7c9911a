package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWithDefaultConfigFillsEveryField(t *testing.T) {
	cfg, err := WithDefaultConfig()
	if err != nil {
		t.Fatalf("WithDefaultConfig: %v", err)
	}
	if cfg.Nickname == "" {
		t.Fatal("expected a non-empty default nickname")
	}
	if cfg.DownloadDir == "" {
		t.Fatal("expected a non-empty default download dir")
	}
	if !cfg.Visible {
		t.Fatal("expected visible by default")
	}
	if cfg.ChunkSize == 0 || cfg.ProgressUpdateBytes == 0 {
		t.Fatal("expected non-zero transfer tuning defaults")
	}
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg, err := WithDefaultConfig()
	if err != nil {
		t.Fatalf("WithDefaultConfig: %v", err)
	}

	loaded, err := LoadFile(cfg, filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded != cfg {
		t.Fatal("missing config file should leave config unchanged")
	}
}

func TestLoadFileOverlaysFields(t *testing.T) {
	cfg, err := WithDefaultConfig()
	if err != nil {
		t.Fatalf("WithDefaultConfig: %v", err)
	}

	path := filepath.Join(t.TempDir(), "swapbytes.yaml")
	const contents = "nickname: configured-name\nvisible: false\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, err := LoadFile(cfg, path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Nickname != "configured-name" {
		t.Fatalf("nickname not overlaid: %+v", loaded)
	}
	if loaded.Visible {
		t.Fatal("visible should have been overlaid to false")
	}
	if loaded.DownloadDir != cfg.DownloadDir {
		t.Fatal("unspecified field should keep its default")
	}
}
