package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/meigma/ultra/archive"
	"github.com/meigma/ultra/internal/atomicfile"
	"github.com/meigma/ultra/internal/sizing"
	"github.com/meigma/ultra/outcome"
)

// SaveReport describes a completed Save.
type SaveReport struct {
	// Path is the written archive.
	Path string
	// Bytes is the size of the compressed archive.
	Bytes int
	// Items records every stored or skipped resource, keyed by source path.
	Items outcome.List
}

// Save writes savables to a compressed scene archive at dest, replacing
// any existing file. Resources that cannot be read are skipped and left
// out of their fragment's resource list.
func (a *Archiver) Save(savables []Savable, dest string) (*SaveReport, error) {
	var buf bytes.Buffer
	w := archive.NewWriter(&buf)
	report := &SaveReport{Path: dest}
	entries := make(map[string]string)

	root := map[string]any{}
	models := []any{}
	for _, s := range savables {
		frag := s.Save()
		doc := maps.Clone(frag.Document)
		if doc == nil {
			doc = map[string]any{}
		}

		refs := []any{}
		resources := s.Resources()
		for _, role := range slices.Sorted(maps.Keys(resources)) {
			src := resources[role]
			name, n, err := a.storeResource(w, entries, src)
			if err != nil {
				a.log().Warn("skipping resource", "path", src, "error", err)
				report.Items.Fail(src, outcome.Stored, err)
				continue
			}
			refs = append(refs, map[string]any{role: name})
			report.Items.Add(src, outcome.Stored, uint64(n)) //nolint:gosec // n >= 0
		}
		doc[ResourcesKey] = refs

		switch frag.Kind {
		case KindEditor:
			if frag.Key == "" || frag.Key == ModelsKey {
				return nil, fmt.Errorf("%w: editor fragment key %q", ErrInvalidFragment, frag.Key)
			}
			root[frag.Key] = doc
		case KindModel:
			models = append(models, doc)
		default:
			return nil, fmt.Errorf("%w: %s", ErrInvalidFragment, frag.Kind)
		}
	}
	root[ModelsKey] = models

	rendered, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := w.Add(SceneEntry, rendered); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	blob, err := a.codec.Encode(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if err := atomicfile.WriteFile(dest, blob, 0o644); err != nil {
		return nil, fmt.Errorf("write scene: %w", err)
	}
	report.Bytes = len(blob)
	a.log().Info("scene saved", "path", dest, "bytes", len(blob), "resources", len(entries))
	return report, nil
}

// storeResource adds the file at src to w and returns its entry name.
// A source already stored reuses its entry.
func (a *Archiver) storeResource(w *archive.Writer, entries map[string]string, src string) (string, int, error) {
	if name, ok := entries[src]; ok {
		return name, 0, nil
	}
	f, err := os.Open(src) //nolint:gosec // resource paths come from the caller
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	data, err := sizing.ReadAllWithLimit(f, a.maxResourceSize, ErrResourceTooLarge)
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", src, err)
	}

	name := entryName(filepath.Base(src), func(n string) bool {
		return n == SceneEntry || w.Has(n)
	})
	if err := w.Add(name, data); err != nil {
		return "", 0, err
	}
	entries[src] = name
	return name, len(data), nil
}

// entryName returns a valid archive entry name for base. Separators are
// replaced, the stem is shortened to fit archive.MaxNameLen, and "-<n>" is
// inserted before the extension when the name is taken.
func entryName(base string, taken func(string) bool) string {
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." || base == ".." {
		base = "resource"
	}
	ext := filepath.Ext(base)
	if len(ext) > archive.MaxNameLen/2 {
		ext = ""
	}
	stem := strings.TrimSuffix(base, ext)

	name := fitName(stem, "", ext)
	for n := 1; taken(name); n++ {
		name = fitName(stem, "-"+strconv.Itoa(n), ext)
	}
	return name
}

// fitName joins stem, suffix and ext, trimming the stem on a rune boundary
// so the result is at most archive.MaxNameLen bytes.
func fitName(stem, suffix, ext string) string {
	room := archive.MaxNameLen - len(suffix) - len(ext)
	if len(stem) > room {
		for room > 0 && !utf8.RuneStart(stem[room]) {
			room--
		}
		stem = stem[:room]
	}
	return stem + suffix + ext
}
