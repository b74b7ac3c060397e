package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapkeep.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
storage:
  dir: /var/lib/snapkeep
  max_file_bytes: 5242880
browser:
  memory_limit: 2147483648
capture:
  selector_timeout: 20s
  max_concurrent: 4
retention:
  max_age: 48h
  max_files: 200
  auto_start: true
events_db: /var/lib/snapkeep/events.db
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("listen: %q", cfg.Listen)
	}
	if cfg.Storage.Dir != "/var/lib/snapkeep" || cfg.Storage.MaxFileBytes != 5242880 {
		t.Errorf("storage: %+v", cfg.Storage)
	}
	if cfg.Browser.MemoryLimit != 2<<30 {
		t.Errorf("memory limit: %d", cfg.Browser.MemoryLimit)
	}
	if cfg.Capture.SelectorTimeout.Std() != 20*time.Second {
		t.Errorf("selector timeout: %v", cfg.Capture.SelectorTimeout)
	}
	if cfg.Retention.MaxAge.Std() != 48*time.Hour || !cfg.Retention.AutoStart {
		t.Errorf("retention: %+v", cfg.Retention)
	}
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "{}"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8094" {
		t.Errorf("listen default: %q", cfg.Listen)
	}
	if cfg.Storage.Dir != "./screenshots" {
		t.Errorf("dir default: %q", cfg.Storage.Dir)
	}
	if cfg.Browser.RecycleInterval.Std() != 4*time.Hour {
		t.Errorf("recycle default: %v", cfg.Browser.RecycleInterval)
	}
	// Budgets default downstream, not here.
	if cfg.Capture.SelectorTimeout != 0 {
		t.Errorf("selector timeout should stay zero: %v", cfg.Capture.SelectorTimeout)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen == "" || cfg.Storage.Dir == "" || cfg.EventsDB == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}
