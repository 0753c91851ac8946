package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/meigma/ultra/archive"
	"github.com/meigma/ultra/outcome"
)

// LoadResult is a rehydrated scene.
type LoadResult struct {
	// Document is the root document. Model resource references that were
	// extracted point at their absolute Library path.
	Document map[string]any
	// Items records every extracted or unresolved resource, keyed by entry name.
	Items outcome.List
}

// Models returns the model fragments of the document.
func (r *LoadResult) Models() []map[string]any {
	list, _ := r.Document[ModelsKey].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, m := range list {
		if doc, ok := m.(map[string]any); ok {
			out = append(out, doc)
		}
	}
	return out
}

// Load reads the scene archive at src, extracts model resources into the
// Library, and deletes src. Per-resource failures leave the reference
// unchanged and are reported in the result.
func (a *Archiver) Load(src string) (*LoadResult, error) {
	r, err := a.Read(src)
	if err != nil {
		return nil, err
	}
	doc, err := readDocument(r)
	if err != nil {
		return nil, err
	}

	res := &LoadResult{Document: doc}
	for _, model := range res.Models() {
		refs, _ := model[ResourcesKey].([]any)
		for _, ref := range refs {
			entry, ok := ref.(map[string]any)
			if !ok {
				continue
			}
			for role, v := range entry {
				name, ok := v.(string)
				if !ok {
					res.Items.Fail(fmt.Sprint(v), outcome.Extracted, fmt.Errorf("%w: resource %q is not a file name", ErrInvalidDocument, role))
					continue
				}
				target, n, err := a.extract(r, name)
				if err != nil {
					a.log().Warn("unresolved resource", "entry", name, "error", err)
					res.Items.Fail(name, outcome.Extracted, err)
					continue
				}
				entry[role] = target
				res.Items.Add(name, outcome.Extracted, n)
			}
		}
	}

	if err := os.Remove(src); err != nil {
		a.log().Warn("failed to remove loaded scene", "path", src, "error", err)
	}
	a.log().Info("scene loaded", "path", src, "models", len(res.Models()))
	return res, nil
}

// Read decodes the scene archive at src without extracting or removing it.
func (a *Archiver) Read(src string) (*archive.Reader, error) {
	blob, err := os.ReadFile(src) //nolint:gosec // scene path chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	data, err := a.codec.Decode(blob)
	if err != nil {
		return nil, err
	}
	return archive.NewReader(data), nil
}

func readDocument(r *archive.Reader) (map[string]any, error) {
	entry, err := r.Find(SceneEntry)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, ErrMissingScene
	}
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(entry.Payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is null", ErrInvalidDocument)
	}
	if m, ok := doc[ModelsKey]; ok {
		if _, ok := m.([]any); !ok && m != nil {
			return nil, fmt.Errorf("%w: %q is not an array", ErrInvalidDocument, ModelsKey)
		}
	}
	return doc, nil
}

func (a *Archiver) extract(r *archive.Reader, name string) (string, uint64, error) {
	if !archive.ValidName(name) {
		return "", 0, fmt.Errorf("%w: %q", archive.ErrInvalidName, name)
	}
	e, err := r.Find(name)
	if err != nil {
		return "", 0, err
	}
	if err := a.library.WriteFile(name, e.Payload); err != nil {
		return "", 0, err
	}
	return a.library.Path(name), e.Size, nil
}
