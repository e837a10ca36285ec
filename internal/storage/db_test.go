package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestNewSQLiteStore_CreatesDatabase(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	// Verify database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if store.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", store.Path(), dbPath)
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	// Verify directory was created
	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Database directory was not created")
	}
}

func TestSQLiteStore_EnsureSchema_CreatesTables(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	for _, table := range schemaTables {
		_, err := store.DB().ExecContext(context.Background(),
			"SELECT 1 FROM "+table+" LIMIT 1")
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}
}

func TestSQLiteStore_EnsureSchema_Idempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	for i := 0; i < 3; i++ {
		if err := store.EnsureSchema(context.Background()); err != nil {
			t.Fatalf("EnsureSchema() run %d error = %v", i, err)
		}
	}
}

func TestSQLiteStore_EnsureSchema_CreatesIndexes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	want := []string{
		"tag__queue_id", "tag__name", "tag__queue_id_name",
		"event_tag__event_id_tag_id", "event_tag__event_id", "event_tag__tag_id",
		"queue_event__queue_id_event_id", "queue_event__queue_id", "queue_event__event_id",
	}
	for _, name := range want {
		var found string
		err := store.DB().QueryRowContext(context.Background(),
			"SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", name).Scan(&found)
		if err != nil {
			t.Errorf("Index %s does not exist: %v", name, err)
		}
	}
}

func TestNewSQLiteStore_SchemaFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "broken.db")

	// A view occupying the tag table's name breaks the tag index statements.
	raw, err := sql.Open("sqlite", "file:"+dbPath)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	if _, err := raw.Exec("CREATE VIEW tag AS SELECT 1 AS id"); err != nil {
		t.Fatalf("create view error = %v", err)
	}
	raw.Close()

	store, err := NewSQLiteStore(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v, want store despite schema failure", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(context.Background()); err == nil {
		t.Error("EnsureSchema() error = nil, want failure")
	}

	ctx := context.Background()
	queue, err := store.CreateQueue(ctx)
	if err != nil {
		t.Fatalf("CreateQueue() error = %v", err)
	}
	if _, err := store.GetOrCreateTag(ctx, queue.ID, "work"); err == nil {
		t.Error("GetOrCreateTag() error = nil, want failure against broken schema")
	}
}

func TestSQLiteStore_WALMode_Enabled(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	var journalMode string
	err := store.DB().QueryRowContext(context.Background(),
		"PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("Failed to check journal mode: %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("Journal mode = %s, want wal", journalMode)
	}
}

func TestSQLiteStore_ForeignKeys_Disabled(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	var foreignKeys int
	err := store.DB().QueryRowContext(context.Background(),
		"PRAGMA foreign_keys").Scan(&foreignKeys)
	if err != nil {
		t.Fatalf("Failed to check foreign_keys: %v", err)
	}

	if foreignKeys != 0 {
		t.Errorf("foreign_keys = %d, want 0", foreignKeys)
	}
}

func TestSQLiteStore_Close(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	// Close should not error
	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Second close returns the first result
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestSQLiteStore_ConcurrentTagCreation_Safe(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	queue, err := store.CreateQueue(ctx)
	if err != nil {
		t.Fatalf("CreateQueue() error = %v", err)
	}

	const numWriters = 10
	const tagsPerWriter = 10

	type result struct {
		ids []int64
		err error
	}
	resCh := make(chan result, numWriters)

	for i := 0; i < numWriters; i++ {
		go func(writerID int) {
			var res result
			for j := 0; j < tagsPerWriter; j++ {
				// Every writer races on the same names in different casings.
				name := generateTagName(j)
				if writerID%2 == 1 {
					name = "  " + strings.ToUpper(name) + " "
				}
				tag, err := store.GetOrCreateTag(ctx, queue.ID, name)
				if err != nil {
					res.err = err
					break
				}
				res.ids = append(res.ids, tag.ID)
			}
			resCh <- res
		}(i)
	}

	var first []int64
	for i := 0; i < numWriters; i++ {
		res := <-resCh
		if res.err != nil {
			t.Errorf("Concurrent GetOrCreateTag error: %v", res.err)
			continue
		}
		if first == nil {
			first = res.ids
			continue
		}
		for j := range res.ids {
			if res.ids[j] != first[j] {
				t.Errorf("tag %d id = %d, want %d", j, res.ids[j], first[j])
			}
		}
	}

	tags, err := store.QueueTags(ctx, queue.ID)
	if err != nil {
		t.Fatalf("QueueTags() error = %v", err)
	}
	if len(tags) != tagsPerWriter {
		t.Errorf("Got %d tags, want %d", len(tags), tagsPerWriter)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath() error = %v", err)
	}

	if path == "" {
		t.Error("DefaultDBPath() returned empty string")
	}

	if !filepath.IsAbs(path) {
		t.Errorf("DefaultDBPath() = %s is not absolute", path)
	}

	if !strings.HasSuffix(path, "tally.db") {
		t.Errorf("DefaultDBPath() = %s does not end with tally.db", path)
	}
}

// Helper functions

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	return store
}

func generateTagName(n int) string {
	return fmt.Sprintf("tag-%c", 'a'+n)
}

func strPtr(s string) *string {
	return &s
}
