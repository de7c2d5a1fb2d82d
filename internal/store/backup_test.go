package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestCopyTo_FileToMemory(t *testing.T) {
	src := createTestStore(t)
	ctx := context.Background()
	populate(t, src, 100)

	dst, err := OpenMemory(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	var calls, lastCopied, lastTotal int
	err = src.CopyTo(ctx, dst, BackupOptions{
		StepPages: 1,
		Progress: func(copied, total int) {
			calls++
			lastCopied, lastTotal = copied, total
		},
	})
	if err != nil {
		t.Fatalf("CopyTo() failed: %v", err)
	}

	if calls == 0 {
		t.Error("progress was never reported")
	}
	if lastCopied != lastTotal || lastTotal == 0 {
		t.Errorf("final progress = (%d, %d), want copied == total > 0", lastCopied, lastTotal)
	}

	n, err := dst.Table().Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 100 {
		t.Errorf("destination Count() = %d, want 100", n)
	}
	for i := 0; i < 100; i++ {
		got, err := dst.Table().Lookup(ctx, fmt.Sprintf("key-%03d", i))
		if err != nil {
			t.Fatalf("destination Lookup(%d) failed: %v", i, err)
		}
		if string(got) != fmt.Sprint(i) {
			t.Fatalf("destination value %d = %s", i, got)
		}
	}
	if err := dst.QuickCheck(ctx); err != nil {
		t.Errorf("destination QuickCheck() failed: %v", err)
	}
}

func TestCopyTo_MemoryToFile(t *testing.T) {
	ctx := context.Background()
	src, err := OpenMemory(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	populate(t, src, 10)

	path := filepath.Join(t.TempDir(), "copy.db")
	dst, err := Open(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := src.CopyTo(ctx, dst, BackupOptions{}); err != nil {
		t.Fatalf("CopyTo() failed: %v", err)
	}
	dst.Close()

	// Reopen from disk to make sure the pages really landed in the file.
	reopened, err := Open(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	n, err := reopened.Table().Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("reopened Count() = %d, want 10", n)
	}
}

func TestCopyTo_CancelledContext(t *testing.T) {
	src := createTestStore(t)
	populate(t, src, 10)
	dst, err := OpenMemory(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := src.CopyTo(ctx, dst, BackupOptions{}); err == nil {
		t.Error("CopyTo() with cancelled context succeeded")
	}
}

func TestCopyTo_ClosedStore(t *testing.T) {
	src := createTestStore(t)
	dst := createTestStore(t)
	dst.Close()

	err := src.CopyTo(context.Background(), dst, BackupOptions{})
	if err == nil || !strings.Contains(err.Error(), "closed") {
		t.Errorf("CopyTo() into closed store = %v, want ErrClosed", err)
	}
}
