package monument

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Fallen-Breath/monument/mapping"
)

// commentParameter is one entry of a method's "parameters" side-data
// list (spec §6).
type commentParameter struct {
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`
}

type commentMethod struct {
	Comment    string             `json:"comment,omitempty"`
	Parameters []commentParameter `json:"parameters"`
}

type commentClass struct {
	Comment string                   `json:"comment,omitempty"`
	Fields  map[string]string        `json:"fields"`
	Methods map[string]commentMethod `json:"methods"`
}

// Metadata is the {name, version} side-data object of spec §6.
type Metadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// WriteComments builds the per-class comment side-data for every class
// in tree and writes it as a single JSON object (default name -> class
// entry) to path, matching config.go's "marshal a small typed struct,
// write atomically" shape but with stdlib encoding/json rather than
// yaml — the spec fixes JSON as the side-data format.
func WriteComments(tree *mapping.MappingTree, path string) error {
	const op = "monument.WriteComments"
	out := make(map[string]commentClass, len(tree.Classes()))
	for _, cm := range tree.Classes() {
		entry := commentClass{
			Comment: cm.Comment,
			Fields:  make(map[string]string, len(cm.Fields)),
			Methods: make(map[string]commentMethod, len(cm.Methods)),
		}
		for key, fm := range cm.Fields {
			if fm.Comment == "" {
				continue
			}
			entry.Fields[fmt.Sprintf("%s:%s", key.Name, key.Descriptor)] = fm.Comment
		}
		for key, mm := range cm.Methods {
			params := make([]commentParameter, 0, len(mm.Parameters))
			for _, idx := range sortedParamIndices(mm.Parameters) {
				pm := mm.Parameters[idx]
				params = append(params, commentParameter{Name: pm.Name(tree.NamespaceCount() - 1), Comment: pm.Comment})
			}
			if mm.Comment == "" && len(params) == 0 {
				continue
			}
			entry.Methods[fmt.Sprintf("%s:%s", key.Name, key.Descriptor)] = commentMethod{
				Comment:    mm.Comment,
				Parameters: params,
			}
		}
		out[cm.Names[0]] = entry
	}
	return writeJSONAtomic(op, path, out)
}

// WriteMetadata writes the {name, version} side-data object of spec §6.
func WriteMetadata(m Metadata, path string) error {
	return writeJSONAtomic("monument.WriteMetadata", path, m)
}

func sortedParamIndices(params map[int]*mapping.ParameterMapping) []int {
	out := make([]int, 0, len(params))
	for idx := range params {
		out = append(out, idx)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// writeJSONAtomic marshals v and writes it to path via a temp-file-then-
// rename, so concurrent readers never observe a partial side-data file
// — the same atomic-write discipline cache.go's writeAtomic uses for
// blobs, applied here to small JSON documents instead.
func writeJSONAtomic(op, path string, v interface{}) error {
	bb, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return NewError(KindBadFormat, op, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return NewError(KindIO, op, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sidedata-*")
	if err != nil {
		return NewError(KindIO, op, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(bb); err != nil {
		tmp.Close()
		return NewError(KindIO, op, err)
	}
	if err := tmp.Close(); err != nil {
		return NewError(KindIO, op, err)
	}
	return NewErrorIfNotNil(op, os.Rename(tmpName, path))
}
