package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore opens a store on a fresh file in t.TempDir().
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// usersDDL has no declared types on name and age, so values keep the type
// they were written with.
const usersDDL = `
	CREATE TABLE users (
		id      INTEGER PRIMARY KEY,
		name,
		age,
		email,
		deleted BOOLEAN,
		tags    JSON
	)
`

// createUsersTable creates the users table and binds it.
func createUsersTable(t *testing.T, s *Store) *Table {
	t.Helper()
	ctx := context.Background()
	if err := s.Exec(ctx, usersDDL); err != nil {
		t.Fatalf("create users: %v", err)
	}
	tbl, err := s.Table(ctx, "users", "id")
	if err != nil {
		t.Fatalf("Table() failed: %v", err)
	}
	return tbl
}
