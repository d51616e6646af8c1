package zenmill

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
)

// Loader maps a logical path (already normalized, without a leading "/") to its
// template source. It may fail for any reason; errors are wrapped in a LoadError
// and propagated verbatim with the path annotated (§6, §7).
type Loader func(ctx context.Context, path string) (string, error)

// FSLoader adapts an fs.FS into a Loader, the way the teacher's pagesImporter
// wraps an http Handler's FileSystem field. It is a reference implementation of
// the Loader contract, not part of the core (§1: "the loader ... is not
// implemented" by the core).
func FSLoader(fsys fs.FS) Loader {
	return func(_ context.Context, path string) (string, error) {
		b, err := fs.ReadFile(fsys, path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", ErrTemplateNotFound
			}
			return "", err
		}
		return string(b), nil
	}
}

// astCache is the per-Job cache keyed by normalized path (§3: "Job ... Owns ...
// a map path → parsed Node list"; §4.3: "a repeated lookup returns the cached
// Node list without reinvoking the loader"). It is single-owner by the Job that
// created it and is never shared across Jobs (§5).
type astCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once  sync.Once
	nodes []Node
	err   error
}

func newASTCache() *astCache {
	return &astCache{entries: make(map[string]*cacheEntry)}
}

// loadAndParse loads path via loader (if not already cached) and parses it,
// caching both the loader's success and its failure so that a template
// referenced N times triggers at most one loader invocation and one parse
// (§8 property 2).
func (c *astCache) loadAndParse(ctx context.Context, loader Loader, path string) ([]Node, error) {
	c.mu.Lock()
	entry, ok := c.entries[path]
	if !ok {
		entry = &cacheEntry{}
		c.entries[path] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		src, err := loader(ctx, path)
		if err != nil {
			entry.err = &LoadError{Path: path, Err: err}
			return
		}
		nodes, err := Parse(src, path)
		if err != nil {
			entry.err = err
			return
		}
		entry.nodes = nodes
	})

	return entry.nodes, entry.err
}

// loadRaw loads path via loader without parsing it, used by InlineNode resolution
// (§4.4: "Inline: resolve the path; load contents; append verbatim").
func (c *astCache) loadRaw(ctx context.Context, loader Loader, path string) (string, error) {
	// Inline contents are not cached as ASTs: each <inline> site loads and embeds
	// the raw text independently, matching §4.4's "load contents; append verbatim"
	// with no mention of a shared cache for inlined text. A repeated inline of the
	// same file therefore re-invokes the loader once per site, which is consistent
	// with property 2 (that property is scoped to templates parsed via Include).
	src, err := loader(ctx, path)
	if err != nil {
		return "", &LoadError{Path: path, Err: err}
	}
	return src, nil
}

var errNilLoader = fmt.Errorf("zenmill: loader must not be nil")
