package monument

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Fallen-Breath/monument/archive"
	"github.com/Fallen-Breath/monument/cache"
	"github.com/Fallen-Breath/monument/classfile"
	"github.com/Fallen-Breath/monument/mapping"
	"github.com/Fallen-Breath/monument/remap"
)

// Pipeline drives remap jobs end to end: read, index hierarchy, remap
// pass(es), write, mirroring client.go's Client as the single
// collaborator-holding root type, built with functional options via
// NewEnv rather than a bespoke constructor here.
type Pipeline struct {
	env *PipelineEnv
}

// NewPipeline returns a Pipeline bound to env. A nil env gets
// PipelineEnv's own defaults.
func NewPipeline(env *PipelineEnv) *Pipeline {
	if env == nil {
		env = NewEnv()
	}
	return &Pipeline{env: env}
}

// Run executes one job end to end: load mapping tree(s), parse the
// input jar, build a hierarchy index, apply the remap pass(es), and
// write the remapped jar to spec.OutputJar — the ordered
// read -> index -> pass(es) -> write sequence of spec §5.
func (p *Pipeline) Run(ctx context.Context, spec JobSpec) (result JobResult, err error) {
	const op = "monument.Pipeline.Run"
	if err = spec.validate(); err != nil {
		return JobResult{}, err
	}

	job := newJob(p.env, spec)
	defer job.stop()

	p.env.Log.Printf(p.env.JobID, "starting job %s/%s", spec.Provider, spec.Version)
	job.bar.SetTotal(4)
	defer job.bar.Done()

	job.bar.Increment("reading input jar")
	classes, resources, err := p.readJar(spec.InputJar)
	if err != nil {
		return JobResult{}, err
	}

	job.bar.Increment("loading mapping tree(s)")
	tree, combined, err := p.loadTrees(spec)
	if err != nil {
		return JobResult{}, err
	}

	job.bar.Increment("remapping")
	var out remap.ClassSet
	if combined != nil {
		out = remap.ApplyCombined(classes, combined)
	} else {
		hier := remap.BuildHierarchy(classes)
		out = remap.PassFinal(classes, hier, tree, tree.NamespaceCount()-1)
	}
	if err = ctx.Err(); err != nil {
		return JobResult{}, err
	}

	job.bar.Increment("writing output jar")
	if err = p.writeJar(spec.OutputJar, out, resources); err != nil {
		return JobResult{}, err
	}
	job.bar.Complete("done")

	return JobResult{
		Provider:   spec.Provider,
		Version:    spec.Version,
		ClassCount: len(out),
		OutputJar:  spec.OutputJar,
	}, nil
}

// JobResult summarizes a completed Run, the analogue of
// client.go's FunctionDescription for a finished remap job rather
// than a deployed service.
type JobResult struct {
	Provider   string
	Version    string
	ClassCount int
	OutputJar  string
}

// readJar opens path and splits its entries into parsed classes
// (remap.ClassSet) and verbatim resource bytes (everything not ending
// ".class"), per spec §6's "resources preserved verbatim" contract.
func (p *Pipeline) readJar(path string) (remap.ClassSet, []archive.Entry, error) {
	const op = "monument.Pipeline.readJar"
	r, err := archive.Open(path)
	if err != nil {
		return nil, nil, err
	}

	classes := make(remap.ClassSet)
	var resources []archive.Entry
	for _, e := range r.Entries() {
		if !strings.HasSuffix(e.Name, ".class") {
			resources = append(resources, e)
			continue
		}
		cf, perr := classfile.Parse(bytes.NewReader(e.Content))
		if perr != nil {
			return nil, nil, NewError(KindBadFormat, op, fmt.Errorf("%s: %w", e.Name, perr))
		}
		classes[cf.Name()] = cf
	}
	return classes, resources, nil
}

// writeJar emits every class in classes (remapped internal name as the
// entry path, spec §6) plus every preserved resource, then
// content-addresses the result into the destination via the cache
// package's WriteCached — the blob is written once and materialized at
// path by hard link, exactly as cache.CopyCached does for
// directory trees.
func (p *Pipeline) writeJar(path string, classes remap.ClassSet, resources []archive.Entry) error {
	const op = "monument.Pipeline.writeJar"
	w := archive.NewWriter()
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var buf bytes.Buffer
		if err := classfile.Write(&buf, classes[name]); err != nil {
			return NewError(KindBadFormat, op, err)
		}
		w.Add(name+".class", buf.Bytes())
	}
	for _, e := range resources {
		w.Add(e.Name, e.Content)
	}

	tmp := path + ".building"
	if err := os.MkdirAll(filepath.Dir(tmp), 0o755); err != nil {
		return NewError(KindIO, op, err)
	}
	if err := w.Write(tmp); err != nil {
		return err
	}
	defer os.Remove(tmp)

	content, err := os.ReadFile(tmp)
	if err != nil {
		return NewError(KindIO, op, err)
	}
	c := cache.New(p.env.CacheDir, p.env)
	return c.WriteCached(path, content)
}

// loadTrees loads the mapping tree(s) named by spec, returning either a
// single *mapping.MappingTree or a *mapping.CombinedMappingTree for a
// two-stage (intermediate + named) job.
func (p *Pipeline) loadTrees(spec JobSpec) (*mapping.MappingTree, *mapping.CombinedMappingTree, error) {
	if spec.IntermediateMappingPath != "" && spec.NamedMappingPath != "" {
		intermediate, err := parseMappingFile(spec.IntermediateMappingPath)
		if err != nil {
			return nil, nil, err
		}
		named, err := parseMappingFile(spec.NamedMappingPath)
		if err != nil {
			return nil, nil, err
		}
		return nil, mapping.NewCombinedMappingTree(intermediate, named), nil
	}
	path := spec.NamedMappingPath
	if path == "" {
		path = spec.IntermediateMappingPath
	}
	tree, err := parseMappingFile(path)
	if err != nil {
		return nil, nil, err
	}
	return tree, nil, nil
}

// parseMappingFile dispatches to ParseTiny or ParseProguard by file
// extension: ".tiny" files (v1 or v2, auto-detected by ParseTiny) and
// everything else (Proguard's dot-separated "->" format).
func parseMappingFile(path string) (*mapping.MappingTree, error) {
	const op = "monument.parseMappingFile"
	f, err := os.Open(path)
	if err != nil {
		return nil, NewError(KindIO, op, err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".tiny") {
		return mapping.ParseTiny(f)
	}
	return mapping.ParseProguard(f)
}
