package backup

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "anchor.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	for _, stmt := range []string{
		"CREATE TABLE schema_version (version INTEGER PRIMARY KEY)",
		"INSERT INTO schema_version (version) VALUES (1)",
		"CREATE TABLE habits (id TEXT PRIMARY KEY, title TEXT)",
		"INSERT INTO habits (id, title) VALUES ('h1', 'Read')",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed test database: %v", err)
		}
	}
	return dbPath
}

// newTestManager returns a manager whose clock advances one minute per call.
func newTestManager(dbPath string) *Manager {
	m := NewManager(dbPath)
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.Local)
	calls := 0
	m.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}
	return m
}

func countHabits(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM habits").Scan(&n); err != nil {
		t.Fatalf("failed to count habits: %v", err)
	}
	return n
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)

	path, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if filepath.Dir(path) != mgr.Dir() {
		t.Errorf("expected backup in %s, got %s", mgr.Dir(), path)
	}
	if !strings.HasPrefix(filepath.Base(path), "anchor-20250101-0901") {
		t.Errorf("unexpected backup name %s", filepath.Base(path))
	}
	if got := countHabits(t, path); got != 1 {
		t.Errorf("expected backup to contain 1 habit, got %d", got)
	}
}

func TestCreateWithoutDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("expected a missing database error, got %v", err)
	}
}

func TestUniqueNamesWithinOneSecond(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	fixed := time.Date(2025, 1, 1, 9, 0, 0, 0, time.Local)
	mgr.now = func() time.Time { return fixed }

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		path, err := mgr.Create()
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[path] {
			t.Fatalf("duplicate backup path %s", path)
		}
		seen[path] = true
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	if backups[0].Sequence != 2 || backups[2].Sequence != 0 {
		t.Errorf("expected sequence ordering newest first, got %d..%d", backups[0].Sequence, backups[2].Sequence)
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)
	mgr.keep = 3

	var paths []string
	for i := 0; i < 5; i++ {
		path, err := mgr.Create()
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		paths = append(paths, path)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups after rotation, got %d", len(backups))
	}
	if backups[0].Path != paths[4] || backups[2].Path != paths[2] {
		t.Errorf("expected the newest backups to survive, got %v", backups)
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Errorf("expected the oldest backup to be removed")
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)
	if _, err := mgr.Create(); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, name := range []string{"notes.txt", "anchor-latest.db", "other-20250101-090000.db"} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), name), []byte("x"), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("expected only the real backup to be listed, got %d", len(backups))
	}
}

func TestListMissingDir(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "anchor.db"))
	backups, err := mgr.List()
	if err != nil || len(backups) != 0 {
		t.Errorf("expected an empty list, got %v, %v", backups, err)
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)

	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec("INSERT INTO habits (id, title) VALUES ('h2', 'Run')"); err != nil {
		t.Fatalf("failed to modify database: %v", err)
	}
	db.Close()
	if got := countHabits(t, dbPath); got != 2 {
		t.Fatalf("expected 2 habits before restore, got %d", got)
	}

	saved, err := mgr.Restore(backupPath)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := countHabits(t, dbPath); got != 1 {
		t.Errorf("expected 1 habit after restore, got %d", got)
	}
	if saved == "" {
		t.Fatal("expected the pre-restore state to be saved")
	}
	if got := countHabits(t, saved); got != 2 {
		t.Errorf("expected the pre-restore backup to hold 2 habits, got %d", got)
	}
}

func TestRestoreRejectsInvalidFiles(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.db")
	if err := os.WriteFile(garbage, []byte("definitely not sqlite"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	foreign := filepath.Join(dir, "foreign.db")
	db, err := sql.Open("sqlite", foreign)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE other (id INTEGER)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	db.Close()

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing", filepath.Join(dir, "missing.db"), "does not exist"},
		{"garbage", garbage, "corrupted or invalid"},
		{"foreign schema", foreign, "missing schema_version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.Restore(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
	if got := countHabits(t, dbPath); got != 1 {
		t.Errorf("expected the database to be untouched, got %d habits", got)
	}
}
