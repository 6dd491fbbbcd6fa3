package monument

import (
	"context"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// Category names a typed task class with its own in-flight cap,
// generalizing the source's named thread-pool categories (spec §5).
type Category string

const (
	CategoryDownload       Category = "DOWNLOAD"
	CategoryReadMappings   Category = "READ_MAPPINGS"
	CategoryRemap          Category = "REMAP"
	CategoryPostProcess    Category = "POST_PROCESS"
	CategoryExtractResource Category = "EXTRACT_RESOURCE"
)

// defaultCategoryLimits mirrors a reasonable per-category fan-out: disk
// bound passes get the full parallelism, network-bound downloads are
// capped lower by default to be a considerate network citizen.
func defaultCategoryLimits(parallelism int) map[Category]int {
	if parallelism < 1 {
		parallelism = 1
	}
	dl := parallelism
	if dl > 4 {
		dl = 4
	}
	return map[Category]int{
		CategoryDownload:        dl,
		CategoryReadMappings:    parallelism,
		CategoryRemap:           parallelism,
		CategoryPostProcess:     parallelism,
		CategoryExtractResource: parallelism,
	}
}

// PipelineEnv is the single explicit context handle threaded through
// every operation in this module (design note in spec §9): the
// process-wide download map, output-stream registry, and cache
// directories are fields here rather than package-level singletons,
// exactly as client.go threads collaborators through a single *Client
// built via functional options.
type PipelineEnv struct {
	JobID       string
	CacheDir    string
	Parallelism int
	Clock       func() int64 // injected for determinism in tests; see design notes on Date.now()-equivalents
	Log         LogSink

	sems    map[Category]chan struct{}
	semOnce sync.Once

	blobCache *lru.Cache[string, string] // content digest -> blob path under the cache directory

	downloadsMu sync.Mutex
	downloads   map[string]any // (url,dest) key -> download future; fetch.Coordinator keeps its own map and does not use this one
}

// Option mutates a PipelineEnv at construction time, mirroring
// client.go's functional-option pattern.
type Option func(*PipelineEnv)

func WithCacheDir(dir string) Option {
	return func(e *PipelineEnv) { e.CacheDir = dir }
}

func WithParallelism(n int) Option {
	return func(e *PipelineEnv) { e.Parallelism = n }
}

func WithLogSink(sink LogSink) Option {
	return func(e *PipelineEnv) { e.Log = sink }
}

func WithClock(clock func() int64) Option {
	return func(e *PipelineEnv) { e.Clock = clock }
}

func WithJobID(id string) Option {
	return func(e *PipelineEnv) { e.JobID = id }
}

// NewEnv constructs a PipelineEnv with static defaults, applying options
// in order such that later options take precedence — the same
// instantiation shape as faas.New in client.go.
func NewEnv(options ...Option) *PipelineEnv {
	e := &PipelineEnv{
		JobID:       uuid.NewString(),
		Parallelism: 4,
		Log:         NewStdLogSink(false),
		downloads:   make(map[string]any),
	}
	for _, o := range options {
		o(e)
	}
	if e.Clock == nil {
		e.Clock = defaultClock
	}
	cache, _ := lru.New[string, string](4096)
	e.blobCache = cache
	return e
}

func defaultClock() int64 {
	// Wall-clock time is read on every call; tests inject WithClock for
	// determinism.
	return wallClockNanos()
}

func (e *PipelineEnv) sem(cat Category) chan struct{} {
	e.semOnce.Do(func() {
		e.sems = make(map[Category]chan struct{})
		for cat, n := range defaultCategoryLimits(e.Parallelism) {
			e.sems[cat] = make(chan struct{}, n)
		}
	})
	return e.sems[cat]
}

// Submit schedules fn under the given task category, returning a Future
// that resolves with fn's result. Acquiring the category's ticket is the
// suspension point callers must not bypass by blocking a worker thread
// directly (spec §5).
func Submit[T any](ctx context.Context, env *PipelineEnv, cat Category, fn func(context.Context) (T, error)) *Future[T] {
	out := newFuture[T]()
	sem := env.sem(cat)
	go func() {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			var zero T
			out.complete(zero, ctx.Err())
			return
		}
		defer func() { <-sem }()

		v, err := fn(ctx)
		out.complete(v, err)
	}()
	return out
}

// RunAll runs each fn concurrently under an errgroup, capped at env's
// overall parallelism, returning the first error encountered (errgroup's
// usual fail-fast semantics).
func RunAll(ctx context.Context, env *PipelineEnv, fns []func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if env.Parallelism > 0 {
		g.SetLimit(env.Parallelism)
	}
	for _, fn := range fns {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}

// BlobCachePut/Get expose the bounded in-memory digest->path memo the
// cache package consults before touching the filesystem.
func (e *PipelineEnv) BlobCachePut(digest, path string) {
	if e.blobCache != nil {
		e.blobCache.Add(digest, path)
	}
}

func (e *PipelineEnv) BlobCacheGet(digest string) (string, bool) {
	if e.blobCache == nil {
		return "", false
	}
	return e.blobCache.Get(digest)
}
