package fetch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Fallen-Breath/monument/fetch"
)

func TestDownload_FileScheme(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "dest.bin")

	c := fetch.New()
	f := c.Download(context.Background(), "file://"+src, dest, 0, nil)
	res, err := f.Get(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Dest != dest {
		t.Fatalf("got dest %q", res.Dest)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q", got)
	}
}

func TestDownload_ExistingNonJarCompletesImmediately(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "dest.txt")
	if err := os.WriteFile(dest, []byte("already here"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := fetch.New()
	// Bogus URL: if this were actually dialed, the download would fail;
	// success here proves the existing-file short circuit fired.
	f := c.Download(context.Background(), "http://127.0.0.1:0/unreachable", dest, 0, nil)
	if _, err := f.Get(context.Background()); err != nil {
		t.Fatalf("expected immediate completion for existing non-jar dest, got %v", err)
	}
}

// TestDownload_Uniqueness checks the download uniqueness property for N
// concurrent callers requesting the same (url, dest), using the file://
// path (deterministic, no network): every caller must receive the same
// future, and every caller must observe success.
func TestDownload_Uniqueness(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "dest.bin")

	c := fetch.New()
	const n = 16
	var wg sync.WaitGroup
	var successes int64
	futures := make([]chan error, n)
	for i := 0; i < n; i++ {
		futures[i] = make(chan error, 1)
	}
	handles := make([]any, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := c.Download(context.Background(), "file://"+src, dest, 0, nil)
			handles[i] = f
			_, err := f.Get(context.Background())
			if err == nil {
				atomic.AddInt64(&successes, 1)
			}
			futures[i] <- err
		}(i)
	}
	wg.Wait()
	if successes != n {
		t.Fatalf("expected all %d callers to observe success, got %d", n, successes)
	}
	for i := 1; i < n; i++ {
		if handles[i] != handles[0] {
			t.Fatalf("caller %d received a different future than caller 0", i)
		}
	}
}
