// Package testutil provides helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/meigma/ultra/preview"
)

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(tb testing.TB, root, rel string, content []byte) string {
	tb.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		tb.Fatalf("write %s: %v", rel, err)
	}
	return path
}

// WriteTree writes every rel -> content pair under root.
func WriteTree(tb testing.TB, root string, files map[string]string) {
	tb.Helper()
	for rel, content := range files {
		WriteFile(tb, root, rel, []byte(content))
	}
}

// Touch sets the modification time of root/rel to t.
func Touch(tb testing.TB, root, rel string, t time.Time) {
	tb.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.Chtimes(path, t, t); err != nil {
		tb.Fatalf("chtimes %s: %v", rel, err)
	}
}

// Handle is a preview handle that records its release.
type Handle struct {
	Path string

	mu       sync.Mutex
	released bool
}

// Release implements preview.Handle.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
}

// Released reports whether Release was called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Renderer is a preview.Renderer that hands out Handles and counts calls.
// Paths listed in Fail return Err.
type Renderer struct {
	Fail map[string]bool
	Err  error

	mu      sync.Mutex
	handles []*Handle
}

// RenderTexture implements preview.Renderer.
func (r *Renderer) RenderTexture(path string) (preview.Handle, error) {
	return r.render(path)
}

// RenderModel implements preview.Renderer.
func (r *Renderer) RenderModel(path string) (preview.Handle, error) {
	return r.render(path)
}

// Handles returns every handle rendered so far.
func (r *Renderer) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Handle(nil), r.handles...)
}

func (r *Renderer) render(path string) (preview.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail[path] {
		return nil, r.Err
	}
	h := &Handle{Path: path}
	r.handles = append(r.handles, h)
	return h, nil
}
