// Package archive provides jar (zip-format) container I/O (spec §4.C):
// reading class/resource entries out of an archive and writing a new
// one in insertion order, plus a composite multi-jar read-only view.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/Fallen-Breath/monument"
)

// Entry is a single non-directory archive member.
type Entry struct {
	Name    string
	Content []byte
}

// Reader is an opened-for-read jar; entries preserve the archive's
// member ordering.
type Reader struct {
	entries []Entry
	byName  map[string][]byte
}

// Open reads path fully into memory and indexes its non-directory
// entries, mirroring tarfs.New's "decode once into an in-memory map"
// approach but keyed by zip rather than tar framing.
func Open(path string) (*Reader, error) {
	const op = "archive.Open"
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, monument.NewError(monument.KindBadFormat, op, err)
	}
	defer zr.Close()
	return fromZipFiles(op, zr.File)
}

// OpenBytes is Open for an already-in-memory archive.
func OpenBytes(content []byte) (*Reader, error) {
	const op = "archive.OpenBytes"
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, monument.NewError(monument.KindBadFormat, op, err)
	}
	return fromZipFiles(op, zr.File)
}

func fromZipFiles(op string, files []*zip.File) (*Reader, error) {
	r := &Reader{byName: make(map[string][]byte)}
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, monument.NewError(monument.KindBadFormat, op, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, monument.NewError(monument.KindBadFormat, op, err)
		}
		r.entries = append(r.entries, Entry{Name: f.Name, Content: data})
		r.byName[f.Name] = data
	}
	return r, nil
}

// Entries returns every non-directory member in archive order.
func (r *Reader) Entries() []Entry { return r.entries }

// Get returns the content of name, or (nil, false) if absent.
func (r *Reader) Get(name string) ([]byte, bool) {
	b, ok := r.byName[name]
	return b, ok
}

// Writer accumulates entries for a subsequent Write, preserving
// insertion order exactly as given (spec §4.C).
type Writer struct {
	entries []Entry
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Add(name string, content []byte) {
	w.entries = append(w.entries, Entry{Name: name, Content: content})
}

// Write emits a zip archive to path containing every added entry in
// insertion order.
func (w *Writer) Write(path string) error {
	const op = "archive.Write"
	f, err := os.Create(path)
	if err != nil {
		return monument.NewError(monument.KindIO, op, err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, e := range w.entries {
		fw, err := zw.Create(e.Name)
		if err != nil {
			return monument.NewError(monument.KindIO, op, err)
		}
		if _, err := fw.Write(e.Content); err != nil {
			return monument.NewError(monument.KindIO, op, err)
		}
	}
	return monument.NewErrorIfNotNil(op, zw.Close())
}

// CompositeReader presents N jars as one read-only tree, guaranteeing
// all are closed together (here: released together, since each Reader
// is fully in-memory). Entries are looked up across all constituent
// jars; when more than one jar provides the same name, the earliest
// jar passed to OpenAll wins, mirroring classpath-first resolution.
type CompositeReader struct {
	readers []*Reader
	index   map[string]int // name -> index into readers, first wins
}

// OpenAll opens every path and composes them into one CompositeReader.
func OpenAll(paths ...string) (*CompositeReader, error) {
	cr := &CompositeReader{index: make(map[string]int)}
	for i, p := range paths {
		r, err := Open(p)
		if err != nil {
			return nil, err
		}
		cr.readers = append(cr.readers, r)
		for _, e := range r.Entries() {
			if _, exists := cr.index[e.Name]; !exists {
				cr.index[e.Name] = i
			}
		}
	}
	return cr, nil
}

func (cr *CompositeReader) Get(name string) ([]byte, bool) {
	i, ok := cr.index[name]
	if !ok {
		return nil, false
	}
	return cr.readers[i].Get(name)
}

// Entries returns the union of all members across constituent jars,
// sorted by name for deterministic iteration.
func (cr *CompositeReader) Entries() []Entry {
	out := make([]Entry, 0, len(cr.index))
	for name, i := range cr.index {
		b, _ := cr.readers[i].Get(name)
		out = append(out, Entry{Name: name, Content: b})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}
