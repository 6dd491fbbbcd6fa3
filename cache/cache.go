// Package cache implements the content-addressed file cache of spec §4.A:
// resource outputs are hard-linked by SHA-256 digest to deduplicate
// identical bytes across game versions.
package cache

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	digest "github.com/opencontainers/go-digest"

	"github.com/Fallen-Breath/monument"
)

// Cache is a SHA-256 keyed blob store rooted at Dir, materializing
// outputs as hard links at caller-chosen target paths.
type Cache struct {
	Dir string
	env *monument.PipelineEnv // optional; nil is valid (no in-memory memo)
}

// New returns a Cache rooted at dir. env may be nil.
func New(dir string, env *monument.PipelineEnv) *Cache {
	return &Cache{Dir: dir, env: env}
}

// BlobPath computes cacheDir/sha256[0:2]/sha256[2:]+suffix for the given
// digest and target file name, per spec §3's ContentBlob layout.
func BlobPath(cacheDir string, d digest.Digest, targetName string) string {
	hex := d.Encoded()
	return filepath.Join(cacheDir, hex[:2], hex[2:]+suffixFrom(targetName))
}

// suffixFrom returns ".everythingAfterFirstDot" or "" if name has no dot.
func suffixFrom(name string) string {
	i := strings.Index(name, ".")
	if i < 0 {
		return ""
	}
	return "." + name[i+1:]
}

// WriteCached implements the writeCached operation of spec §4.A:
// content-address content, write the blob at most once, then
// materialize target as a hard link to it (delete-then-link).
func (c *Cache) WriteCached(target string, content []byte) error {
	const op = "cache.WriteCached"
	d := digest.FromBytes(content)
	blobPath := BlobPath(c.Dir, d, filepath.Base(target))

	if cached, ok := c.memoGet(d.String()); ok && cached == blobPath {
		// Known to already exist from an earlier call in this process;
		// skip the stat but still perform the idempotent link step below.
	} else if _, err := os.Stat(blobPath); err != nil {
		if !os.IsNotExist(err) {
			return monument.NewError(monument.KindIO, op, err)
		}
		if err := os.MkdirAll(filepath.Dir(blobPath), 0o755); err != nil {
			return monument.NewError(monument.KindIO, op, err)
		}
		if err := writeAtomic(blobPath, content); err != nil {
			return monument.NewError(monument.KindIO, op, err)
		}
	}
	c.memoPut(d.String(), blobPath)

	if _, err := os.Lstat(target); err == nil {
		if err := os.Remove(target); err != nil {
			return monument.NewError(monument.KindIO, op, err)
		}
	} else if !os.IsNotExist(err) {
		return monument.NewError(monument.KindIO, op, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return monument.NewError(monument.KindIO, op, err)
	}
	if err := os.Link(blobPath, target); err != nil {
		return monument.NewError(monument.KindIO, op, err)
	}
	return nil
}

func (c *Cache) memoGet(key string) (string, bool) {
	if c.env == nil {
		return "", false
	}
	return c.env.BlobCacheGet(key)
}

func (c *Cache) memoPut(key, val string) {
	if c.env == nil {
		return
	}
	c.env.BlobCachePut(key, val)
}

// writeAtomic writes content to a temp file in the same directory as
// path, then renames it into place, so concurrent readers never observe
// a partially-written blob.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// CopyCached recursively walks srcDir, writing every regular file found
// into dstDir (mirroring directory structure) through WriteCached. When
// renameJarResource is true, any file whose name ends ".jar.resource" is
// materialized under a target name ending ".jar" instead, per spec §4.A.
func (c *Cache) CopyCached(srcDir, dstDir string, renameJarResource bool) error {
	const op = "cache.CopyCached"
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return monument.NewError(monument.KindIO, op, err)
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return monument.NewError(monument.KindIO, op, err)
		}
		target := filepath.Join(dstDir, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		name := d.Name()
		if renameJarResource && strings.HasSuffix(name, ".jar.resource") {
			newName := strings.TrimSuffix(name, ".jar.resource") + ".jar"
			target = filepath.Join(filepath.Dir(target), newName)
		}

		content, err := readFile(path)
		if err != nil {
			return monument.NewError(monument.KindIO, op, err)
		}
		return c.WriteCached(target, content)
	})
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
