package ultra

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/ultra/archive"
	"github.com/meigma/ultra/internal/atomicfile"
	"github.com/meigma/ultra/internal/pathutil"
	"github.com/meigma/ultra/internal/platform"
	"github.com/meigma/ultra/internal/sizing"
	"github.com/meigma/ultra/library"
	"github.com/meigma/ultra/outcome"
	"github.com/meigma/ultra/project"
	"github.com/meigma/ultra/scene"
)

// ManifestEntry is the pack entry mapping asset entry names to source paths.
const ManifestEntry = "pack.json"

// packReaders bounds the number of source files read at once.
const packReaders = 4

// PackReport describes a completed pack or unpack.
type PackReport struct {
	Path  string
	Bytes int
	Items outcome.List
}

// PackProject persists the loaded project and writes its database and
// every tracked source file into a compressed archive at dest. Source
// files that cannot be read, or that exceed the workspace's maximum
// resource size, are left out and reported.
func (w *Workspace) PackProject(dest string) (*PackReport, error) {
	p := w.project
	if p == nil {
		return nil, ErrNoProject
	}
	if err := p.Persist(""); err != nil {
		return nil, err
	}
	db, err := os.ReadFile(p.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}

	root, err := os.OpenRoot(p.Root())
	if err != nil {
		return nil, fmt.Errorf("open project root: %w", err)
	}
	defer root.Close()

	records := p.Assets()
	payloads := make([][]byte, len(records))
	readErrs := make([]error, len(records))
	var g errgroup.Group
	g.SetLimit(packReaders)
	for i, rec := range records {
		g.Go(func() error {
			payloads[i], readErrs[i] = readSource(root, rec.SourcePath, w.maxResourceSize)
			return nil
		})
	}
	_ = g.Wait()

	var buf bytes.Buffer
	aw := archive.NewWriter(&buf)
	if err := aw.Add(project.DatabaseName, db); err != nil {
		return nil, err
	}

	report := &PackReport{Path: dest}
	manifest := make(map[string]string, len(records))
	for i, rec := range records {
		name := library.AssetName(rec.ID, rec.SourcePath)
		err := readErrs[i]
		if err == nil {
			err = aw.Add(name, payloads[i])
		}
		if err != nil {
			w.log().Warn("skipping asset", "path", rec.SourcePath, "error", err)
			report.Items.Fail(rec.SourcePath, outcome.Stored, err)
			continue
		}
		manifest[name] = rec.SourcePath
		report.Items.Add(rec.SourcePath, outcome.Stored, uint64(len(payloads[i])))
	}

	mdata, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := aw.Add(ManifestEntry, mdata); err != nil {
		return nil, err
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}

	blob, err := w.codec.Encode(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if err := atomicfile.WriteFile(dest, blob, 0o644); err != nil {
		return nil, fmt.Errorf("write pack: %w", err)
	}
	report.Bytes = len(blob)
	w.log().Info("project packed", "path", dest, "assets", len(manifest), "bytes", len(blob))
	return report, nil
}

// UnpackProject restores the pack at src into dir and opens it as the
// loaded project. Every manifest path is checked before anything is
// written. Restored files keep the modification time recorded in the
// database.
func (w *Workspace) UnpackProject(src, dir string) (*PackReport, error) {
	blob, err := os.ReadFile(src) //nolint:gosec // pack path chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("read pack: %w", err)
	}
	data, err := w.codec.Decode(blob)
	if err != nil {
		return nil, err
	}
	r := archive.NewReader(data)

	dbEntry, err := r.Find(project.DatabaseName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPack, err)
	}
	rec, err := project.ParseDatabase(dbEntry.Payload)
	if err != nil {
		return nil, err
	}
	manifest, err := readManifest(r)
	if err != nil {
		return nil, err
	}

	mtimes := make(map[string]int64, len(rec.Assets))
	for _, a := range rec.Assets {
		mtimes[a.SourcePath] = a.LastModified
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	report := &PackReport{Path: src}
	for name, rel := range manifest {
		n, err := restore(r, dir, name, rel, mtimes[rel])
		if err != nil {
			w.log().Warn("skipping packed asset", "entry", name, "error", err)
			report.Items.Fail(rel, outcome.Extracted, err)
			continue
		}
		report.Items.Add(rel, outcome.Extracted, n)
	}
	if err := atomicfile.WriteFile(filepath.Join(dir, project.DatabaseName), dbEntry.Payload, 0o644); err != nil {
		return nil, fmt.Errorf("write database: %w", err)
	}

	if err := w.OpenProject(dir); err != nil {
		return nil, err
	}
	w.log().Info("project unpacked", "path", src, "root", w.project.Root(), "assets", len(manifest))
	return report, nil
}

func readManifest(r *archive.Reader) (map[string]string, error) {
	e, err := r.Find(ManifestEntry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPack, err)
	}
	var manifest map[string]string
	if err := json.Unmarshal(e.Payload, &manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", ErrInvalidPack, err)
	}
	for name, rel := range manifest {
		if err := checkPackPath(rel); err != nil {
			return nil, fmt.Errorf("%w: entry %s", err, name)
		}
	}
	return manifest, nil
}

func readSource(root *os.Root, rel string, limit uint64) ([]byte, error) {
	f, err := platform.OpenFileNoFollow(root, filepath.FromSlash(rel))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := sizing.ReadAllWithLimit(f, limit, scene.ErrResourceTooLarge)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

func checkPackPath(rel string) error {
	if !fs.ValidPath(rel) || rel == "." || strings.Contains(rel, `\`) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	if pathutil.First(rel) == library.DirName || rel == project.DatabaseName {
		return fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	return nil
}

func restore(r *archive.Reader, dir, name, rel string, mtime int64) (uint64, error) {
	e, err := r.Find(name)
	if err != nil {
		return 0, err
	}
	target := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return 0, err
	}
	if err := atomicfile.WriteFile(target, e.Payload, 0o644); err != nil {
		return 0, err
	}
	if mtime != 0 {
		t := time.Unix(0, mtime)
		if err := os.Chtimes(target, t, t); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
	}
	return e.Size, nil
}
