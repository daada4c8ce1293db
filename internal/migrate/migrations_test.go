package migrate_test

import (
	"testing"

	"huntline/internal/db"
	"huntline/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// a second run must see the recorded version and change nothing
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var version int
	if err := conn.QueryRow(`SELECT version FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("schema_version: %v", err)
	}
	if version < 1 {
		t.Fatalf("schema version = %d, want at least 1", version)
	}
	for _, table := range []string{"hunts", "tasks", "started_hunts", "teams", "submissions", "events"} {
		if _, err := conn.Exec(`SELECT count(*) FROM ` + table); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}
