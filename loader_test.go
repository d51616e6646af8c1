package zenmill

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/fstest"
)

func TestFSLoaderReadsFile(t *testing.T) {
	fsys := fstest.MapFS{
		"header.html": &fstest.MapFile{Data: []byte(`<h>hi</h>`)},
	}
	loader := FSLoader(fsys)
	src, err := loader(context.Background(), "header.html")
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	if src != `<h>hi</h>` {
		t.Fatalf("src = %q, want %q", src, `<h>hi</h>`)
	}
}

func TestFSLoaderMissingFileIsTemplateNotFound(t *testing.T) {
	loader := FSLoader(fstest.MapFS{})
	_, err := loader(context.Background(), "missing.html")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound", err)
	}
}

func TestASTCacheLoadAndParseCachesSuccess(t *testing.T) {
	var calls int64
	loader := Loader(func(_ context.Context, path string) (string, error) {
		atomic.AddInt64(&calls, 1)
		return "hello " + path, nil
	})

	cache := newASTCache()
	nodes1, err := cache.loadAndParse(context.Background(), loader, "a.html")
	if err != nil {
		t.Fatalf("loadAndParse: %v", err)
	}
	nodes2, err := cache.loadAndParse(context.Background(), loader, "a.html")
	if err != nil {
		t.Fatalf("loadAndParse (second): %v", err)
	}
	if calls != 1 {
		t.Fatalf("loader invoked %d times, want 1", calls)
	}
	if len(nodes1) != 1 || len(nodes2) != 1 {
		t.Fatalf("got %d/%d nodes, want 1/1", len(nodes1), len(nodes2))
	}
	p1, ok1 := nodes1[0].(*PlainNode)
	p2, ok2 := nodes2[0].(*PlainNode)
	if !ok1 || !ok2 || p1.Text != p2.Text {
		t.Fatalf("cached node mismatch: %#v vs %#v", nodes1[0], nodes2[0])
	}
}

func TestASTCacheLoadAndParseCachesFailure(t *testing.T) {
	var calls int64
	loader := Loader(func(_ context.Context, path string) (string, error) {
		atomic.AddInt64(&calls, 1)
		return "", ErrTemplateNotFound
	})

	cache := newASTCache()
	_, err1 := cache.loadAndParse(context.Background(), loader, "missing.html")
	_, err2 := cache.loadAndParse(context.Background(), loader, "missing.html")
	if calls != 1 {
		t.Fatalf("loader invoked %d times, want 1 (failures are cached too)", calls)
	}
	var le1, le2 *LoadError
	if !errors.As(err1, &le1) || !errors.As(err2, &le2) {
		t.Fatalf("errs = %v, %v, want *LoadError", err1, err2)
	}
}

func TestASTCacheDistinctPathsLoadIndependently(t *testing.T) {
	var calls int64
	loader := Loader(func(_ context.Context, path string) (string, error) {
		atomic.AddInt64(&calls, 1)
		return "x", nil
	})
	cache := newASTCache()
	if _, err := cache.loadAndParse(context.Background(), loader, "a.html"); err != nil {
		t.Fatalf("loadAndParse a: %v", err)
	}
	if _, err := cache.loadAndParse(context.Background(), loader, "b.html"); err != nil {
		t.Fatalf("loadAndParse b: %v", err)
	}
	if calls != 2 {
		t.Fatalf("loader invoked %d times, want 2 (distinct paths)", calls)
	}
}

func TestASTCacheLoadRawDoesNotCache(t *testing.T) {
	var calls int64
	loader := Loader(func(_ context.Context, path string) (string, error) {
		atomic.AddInt64(&calls, 1)
		return "raw", nil
	})
	cache := newASTCache()
	src1, err := cache.loadRaw(context.Background(), loader, "snippet.txt")
	if err != nil {
		t.Fatalf("loadRaw: %v", err)
	}
	src2, err := cache.loadRaw(context.Background(), loader, "snippet.txt")
	if err != nil {
		t.Fatalf("loadRaw (second): %v", err)
	}
	if src1 != "raw" || src2 != "raw" {
		t.Fatalf("src = %q, %q, want \"raw\", \"raw\"", src1, src2)
	}
	if calls != 2 {
		t.Fatalf("loader invoked %d times, want 2 (loadRaw is uncached per §4.4)", calls)
	}
}

func TestASTCacheLoadRawWrapsLoadError(t *testing.T) {
	loader := Loader(func(_ context.Context, path string) (string, error) {
		return "", ErrTemplateNotFound
	})
	cache := newASTCache()
	_, err := cache.loadRaw(context.Background(), loader, "missing.txt")
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LoadError", err)
	}
	if le.Path != "missing.txt" {
		t.Fatalf("LoadError.Path = %q, want %q", le.Path, "missing.txt")
	}
}
