package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigNormalizeAndDSN(t *testing.T) {
	cfg := Config{Host: "db", User: "bot", Password: "p ss", Name: "assoc"}
	cfg.Normalize()
	if cfg.Port != "5432" || cfg.SSLMode != "disable" || cfg.MaxConnections != 10 || cfg.ConnectTimeout != 5*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	dsn := cfg.DSN()
	if !strings.Contains(dsn, "password='p ss'") || !strings.Contains(dsn, "dbname=assoc") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	u := cfg.URL()
	if !strings.HasPrefix(u, "postgres://bot:p%20ss@db:5432/assoc?sslmode=disable") {
		t.Fatalf("unexpected url %s", u)
	}
}

func TestMigrationFileHelpers(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_b.up.sql", "000001_a.up.sql", "000001_a.down.sql", "000003_c.up.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files := listMigrationFiles(dir)
	if len(files) != 3 || files[0] != "000001_a.up.sql" {
		t.Fatalf("unexpected files %v", files)
	}
	applied := appliedBetween(files, 1, 3)
	if len(applied) != 2 || applied[0] != "000002_b.up.sql" {
		t.Fatalf("unexpected applied %v", applied)
	}
	if got := appliedBetween(files, 3, 3); len(got) != 0 {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestMigrationsDirOverride(t *testing.T) {
	dir := t.TempDir()
	got, err := migrationsDir(Config{MigrationsDir: dir})
	if err != nil || got != dir {
		t.Fatalf("got %s err %v", got, err)
	}
}
