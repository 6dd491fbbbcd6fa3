// Package fetch implements the at-most-once download coordinator of
// spec §4.B: concurrent callers requesting the same (url, destination)
// share one in-flight body execution and one resulting future.
package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Fallen-Breath/monument"
)

// ProgressSink is invoked with (contentLength, bytesSoFar) as each
// buffer is read from the network; contentLength may be -1 if unknown.
type ProgressSink func(contentLength, bytesSoFar int64)

// Result describes a completed download.
type Result struct {
	Dest string
}

const (
	bufferSize   = 32 * 1024
	maxAttempts  = 5
	retryPause   = 500 * time.Millisecond
)

// Coordinator holds its own mapping from (url, dest) to a pending or completed future, guarded by
// its own lock — the concurrent map design note in spec §5/§9.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*monument.Future[Result]
	client  *retryablehttp.Client
}

// New constructs a Coordinator. The underlying retryablehttp.Client's
// own retry loop is disabled (RetryMax 0): spec §4.B's 5-attempt/500ms
// retry policy is enforced explicitly in Download so that partial
// ".tmp" files and progress callbacks are controlled precisely, while
// still reusing retryablehttp's connection pooling and request
// construction plumbing.
func New() *Coordinator {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	return &Coordinator{
		pending: make(map[string]*monument.Future[Result]),
		client:  client,
	}
}

func key(rawURL, dest string) string {
	return rawURL + "\x00" + dest
}

// Download returns a future completing when dest is a valid file for
// url. A second caller for the same (url, dest) observes exactly one
// body execution and receives the same future (spec §4.B, §8).
func (c *Coordinator) Download(ctx context.Context, rawURL, dest string, minJarSize int64, sink ProgressSink) *monument.Future[Result] {
	k := key(rawURL, dest)

	c.mu.Lock()
	if f, ok := c.pending[k]; ok {
		c.mu.Unlock()
		return f
	}
	f, resolve := monument.NewPendingFuture[Result]()
	// Published before releasing the lock so concurrent callers for the
	// same key observe this exact future instead of starting a second
	// body execution (spec §8's uniqueness property).
	c.pending[k] = f
	c.mu.Unlock()

	go func() {
		r, err := c.body(ctx, rawURL, dest, minJarSize, sink)
		resolve(r, err)
	}()
	return f
}

// body performs the actual download exactly once; it is the "body
// execution" whose uniqueness spec §8 tests.
func (c *Coordinator) body(ctx context.Context, rawURL, dest string, minJarSize int64, sink ProgressSink) (Result, error) {
	const op = "fetch.Download"

	if _, err := os.Stat(dest); err == nil {
		if !isJarName(dest) || isJarGood(dest, minJarSize) {
			return Result{Dest: dest}, nil
		}
		// IntegrityFailure is treated as "file not present": fall through
		// to re-download (spec §7).
	} else if !os.IsNotExist(err) {
		return Result{}, monument.NewError(monument.KindIO, op, err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, monument.NewError(monument.KindBadFormat, op, err)
	}

	if u.Scheme == "file" || u.Scheme == "" {
		if err := localCopy(u.Path, dest); err != nil {
			return Result{}, monument.NewError(monument.KindIO, op, err)
		}
		return Result{Dest: dest}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := c.attempt(ctx, rawURL, dest, sink); err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(retryPause):
			}
			continue
		}
		return Result{Dest: dest}, nil
	}
	return Result{}, monument.NewError(monument.KindIO, op, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr))
}

func (c *Coordinator) attempt(ctx context.Context, rawURL, dest string, sink ProgressSink) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	tmp := dest + ".tmp"
	if err := os.MkdirAll(filepath.Dir(tmp), 0o755); err != nil {
		return err
	}
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	contentLength := resp.ContentLength
	var bytesSoFar int64
	buf := make([]byte, bufferSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				return werr
			}
			bytesSoFar += int64(n)
			if sink != nil {
				sink(contentLength, bytesSoFar)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			return rerr
		}
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

func localCopy(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func isJarName(path string) bool {
	return len(path) >= 4 && path[len(path)-4:] == ".jar"
}

// isJarGood implements the jar integrity check of spec §4.B: size
// threshold plus every entry's compressed stream opening without error.
func isJarGood(path string, minSize int64) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() < minSize {
		return false
	}
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer r.Close()
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return false
		}
		rc.Close()
	}
	return true
}
