package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facts.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpenSQLite_CreatesNewDatabase(t *testing.T) {
	_, path := openTestSQLite(t)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.db")

	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("final OpenSQLite() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='blobs'").Scan(&name)
	if err != nil {
		t.Errorf("blobs table not found after idempotent opens: %v", err)
	}
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/facts.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestSQLite_CloseMultipleCalls(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "facts.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}

	if _, _, err := s.Get(context.Background(), "facts"); err != ErrClosed {
		t.Errorf("Get() after Close = %v, want ErrClosed", err)
	}
}

func TestSQLitePragmas(t *testing.T) {
	s, _ := openTestSQLite(t)

	tests := []struct {
		name, want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.want); err != nil {
			t.Error(err)
		}
	}
}

func TestSQLiteMigrationIndex(t *testing.T) {
	s, _ := openTestSQLite(t)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_blobs_updated_seq'",
	).Scan(&name)
	if err != nil {
		t.Errorf("migration index missing: %v", err)
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "facts.db")

	s1, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	if err := s1.Set(ctx, "facts", `{"gold":5}`); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	s1.Close()

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	got, ok, err := s2.Get(ctx, "facts")
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v", got, ok, err)
	}
	if got != `{"gold":5}` {
		t.Errorf("Get() = %q, want %q", got, `{"gold":5}`)
	}
}

func TestSQLite_UpdatedSeqAdvances(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSQLite(t)

	for _, k := range []string{"a", "b", "a"} {
		if err := s.Set(ctx, k, "{}"); err != nil {
			t.Fatalf("Set(%q) failed: %v", k, err)
		}
	}

	var seqA, seqB int64
	if err := s.db.QueryRow("SELECT updated_seq FROM blobs WHERE key='a'").Scan(&seqA); err != nil {
		t.Fatal(err)
	}
	if err := s.db.QueryRow("SELECT updated_seq FROM blobs WHERE key='b'").Scan(&seqB); err != nil {
		t.Fatal(err)
	}
	if seqA != 3 || seqB != 2 {
		t.Errorf("updated_seq a=%d b=%d, want a=3 b=2", seqA, seqB)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
}
