package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECRUITD_ENV_FILE", "does-not-exist.env")
	t.Setenv("RECRUITD_DB_DSN", "file:recruitd.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("expected sqlite backend by default, got %q", cfg.DBBackend)
	}
	if cfg.SlotMinutes != 30 {
		t.Fatalf("expected 30 minute slots, got %d", cfg.SlotMinutes)
	}
	if cfg.DefaultDurationMinutes != 60 {
		t.Fatalf("expected 60 minute default duration, got %d", cfg.DefaultDurationMinutes)
	}
	if cfg.LockBackend != LockLocal || cfg.EventBackend != EventsMemory {
		t.Fatalf("unexpected backends: lock=%q events=%q", cfg.LockBackend, cfg.EventBackend)
	}
	if cfg.HTTPAddr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected http addr %q", cfg.HTTPAddr())
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("RECRUITD_ENV_FILE", "does-not-exist.env")
	t.Setenv("RECRUITD_DB_DSN", "")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing DSN to fail")
	}
}

func TestLoadFallsBackToDatabaseURL(t *testing.T) {
	t.Setenv("RECRUITD_ENV_FILE", "does-not-exist.env")
	t.Setenv("RECRUITD_DB_DSN", "")
	t.Setenv("DATABASE_URL", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("RECRUITD_DB_BACKEND", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabasePostgres || cfg.DBDSN == "" {
		t.Fatalf("unexpected db config: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown db backend", "RECRUITD_DB_BACKEND", "oracle"},
		{"slot does not divide day", "RECRUITD_SLOT_MINUTES", "7"},
		{"zero slot", "RECRUITD_SLOT_MINUTES", "0"},
		{"zero default duration", "RECRUITD_DEFAULT_DURATION_MINUTES", "0"},
		{"max below default", "RECRUITD_MAX_DURATION_MINUTES", "15"},
		{"unknown lock backend", "RECRUITD_LOCK_BACKEND", "zookeeper"},
		{"unknown event backend", "RECRUITD_EVENT_BACKEND", "kafka"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RECRUITD_ENV_FILE", "does-not-exist.env")
			t.Setenv("RECRUITD_DB_DSN", "file:recruitd.db")
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%s to fail", tt.key, tt.val)
			}
		})
	}
}
