package user_test

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/mkrupp/taskmanager/internal/repo/user"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "users.db")+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestSQLiteUserRepository(t *testing.T) {
	t.Parallel()

	repo, err := user.SQLiteUserRepositoryFactory(openSQLite(t), new(sync.Mutex))()
	if err != nil {
		t.Fatalf("SQLiteUserRepositoryFactory() error = %v", err)
	}

	testRepositoryContract(t, repo)
}

func TestSQLiteUserRepository_SchemaIsIdempotent(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	lock := new(sync.Mutex)

	for range 2 {
		if _, err := user.NewSQLiteUserRepository(db, lock); err != nil {
			t.Fatalf("NewSQLiteUserRepository() error = %v", err)
		}
	}
}
