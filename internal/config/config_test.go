package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("WEEKLY_LOCK_AT_CUTOFF", "")
	t.Setenv("MIGRATION_PAGE_SIZE", "")

	cfg := Load()
	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want 8081", cfg.Port)
	}
	if !cfg.LockAtCutoff {
		t.Error("lock at cutoff should default to true")
	}
	if cfg.MigrationPageSize != 1000 {
		t.Errorf("page size: got %d, want 1000", cfg.MigrationPageSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9000")
	t.Setenv("WEEKLY_LOCK_AT_CUTOFF", "false")
	t.Setenv("MIGRATION_PAGE_SIZE", "25")
	t.Setenv("CATALOG_TTL", "30s")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("port: got %q, want 9000", cfg.Port)
	}
	if cfg.LockAtCutoff {
		t.Error("lock at cutoff should be false")
	}
	if cfg.MigrationPageSize != 25 {
		t.Errorf("page size: got %d, want 25", cfg.MigrationPageSize)
	}
	if cfg.CatalogTTL != 30*time.Second {
		t.Errorf("catalog ttl: got %s, want 30s", cfg.CatalogTTL)
	}
}

func TestLoad_BadNumberKeepsDefault(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MIGRATION_PAGE_SIZE", "lots")

	if got := Load().MigrationPageSize; got != 1000 {
		t.Errorf("page size: got %d, want 1000", got)
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "cutoff_day: Wednesday\ncutoff_time: \"18:30\"\nlock_at_cutoff: false\ngcs_bucket: proofs\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("WEEKLY_LOCK_AT_CUTOFF", "")

	cfg := Load()
	if cfg.Port != "9100" {
		t.Errorf("env value not in the file should survive, got port %q", cfg.Port)
	}
	if cfg.GCSBucket != "proofs" {
		t.Errorf("bucket: got %q, want proofs", cfg.GCSBucket)
	}

	s := cfg.Schedule()
	if s.CutoffDay != time.Wednesday || s.CutoffHour != 18 || s.CutoffMinute != 30 {
		t.Errorf("schedule: got %s %02d:%02d, want Wednesday 18:30", s.CutoffDay, s.CutoffHour, s.CutoffMinute)
	}
	if s.LockAtCutoff {
		t.Error("file should turn lock at cutoff off")
	}
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("PORT", "")

	if got := Load().Port; got != "8081" {
		t.Errorf("port: got %q, want 8081", got)
	}
}

func TestSchedule_BadValuesKeepDefaults(t *testing.T) {
	cfg := &Config{CutoffDay: "Someday", CutoffTime: "noon", CutoffLocation: "Nowhere/Special", LockAtCutoff: true}
	s := cfg.Schedule()
	if s.CutoffDay != time.Friday || s.CutoffHour != 12 {
		t.Errorf("schedule: got %s %02d:%02d, want Friday 12:00", s.CutoffDay, s.CutoffHour, s.CutoffMinute)
	}
	if s.Location != time.UTC {
		t.Errorf("location: got %s, want UTC", s.Location)
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ops.example.com, http://localhost:5173,")

	got := Load().AllowedOrigins
	if len(got) != 2 || got[0] != "https://ops.example.com" || got[1] != "http://localhost:5173" {
		t.Errorf("allowed origins: got %v", got)
	}
}
