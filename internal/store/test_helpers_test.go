package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// populate writes n rows "key-000".."key-<n-1>" with JSON integer values.
func populate(t *testing.T, s *Store, n int) {
	t.Helper()
	ctx := context.Background()
	err := s.InTx(ctx, Immediate, func(tbl Table) error {
		for i := 0; i < n; i++ {
			if err := tbl.Upsert(ctx, fmt.Sprintf("key-%03d", i), []byte(fmt.Sprint(i))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
}
