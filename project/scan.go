package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/meigma/ultra/internal/pathutil"
	"github.com/meigma/ultra/internal/platform"
	"github.com/meigma/ultra/library"
	"github.com/meigma/ultra/outcome"
)

// ScanReport summarizes one scan.
type ScanReport struct {
	// Generation is the epoch stamped on every visited file.
	Generation uint64

	// Items records every add, update, removal, and failure.
	Items outcome.List
}

// Added returns the paths of newly tracked files.
func (r *ScanReport) Added() []string {
	return r.succeeded(outcome.Added)
}

// Updated returns the paths of files whose Library copy was refreshed.
func (r *ScanReport) Updated() []string {
	return r.succeeded(outcome.Updated)
}

// Removed returns the paths of records dropped by the sweep.
func (r *ScanReport) Removed() []string {
	return r.succeeded(outcome.Removed)
}

func (r *ScanReport) succeeded(action outcome.Action) []string {
	var names []string
	for _, it := range r.Items.With(action) {
		if it.OK() {
			names = append(names, it.Name)
		}
	}
	return names
}

// Changed reports whether the scan modified the index.
func (r *ScanReport) Changed() bool {
	for _, it := range r.Items {
		switch it.Action {
		case outcome.Added, outcome.Updated, outcome.Removed:
			return true
		}
	}
	return false
}

// Scan reconciles the index with the files under the project root.
//
// Files are copied into the Library when first seen or when their
// modification time changes. Records for files that are no longer present
// are removed along with their Library copy and preview. Per-file failures
// are logged and reported; an error is returned only when the root itself
// cannot be walked.
func (p *Project) Scan() (*ScanReport, error) {
	if p.closed {
		return nil, ErrClosed
	}
	root, err := os.OpenRoot(p.root)
	if err != nil {
		return nil, fmt.Errorf("open project root: %w", err)
	}
	defer root.Close()

	p.epoch++
	report := &ScanReport{Generation: p.epoch}
	var skipped []string

	walkErr := fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == "." {
				return err
			}
			p.log().Warn("skipping unreadable path", "path", path, "error", err)
			report.Items.Fail(path, outcome.Skipped, err)
			if d != nil && d.IsDir() {
				skipped = append(skipped, path)
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == library.DirName {
				return fs.SkipDir
			}
			return nil
		}

		t := p.DetectType(path)
		if t == Unknown {
			return nil
		}
		if !fs.ValidPath(path) {
			p.log().Warn("skipping file with unsupported name", "path", path)
			report.Items.Fail(path, outcome.Skipped, fmt.Errorf("%w: %q", ErrInvalidPath, path))
			return nil
		}
		info, ok, err := platform.RegularFileInfo(root, filepath.FromSlash(path), d)
		if err != nil {
			p.log().Warn("skipping unreadable file", "path", path, "error", err)
			report.Items.Fail(path, outcome.Skipped, err)
			return nil
		}
		if !ok {
			return nil
		}
		p.visit(root, t, path, info.ModTime().UnixNano(), report)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk project root: %w", walkErr)
	}

	p.sweep(report, skipped)
	p.lastScan = report
	return report, nil
}

func (p *Project) visit(root *os.Root, t AssetType, path string, mtime int64, report *ScanReport) {
	rec, seen := p.assets[t][path]
	switch {
	case !seen:
		rec = &AssetRecord{ID: uuid.New(), Type: t, SourcePath: path}
		p.assets[t][path] = rec
		if n, err := p.copyToLibrary(root, rec); err != nil {
			report.Items.Fail(path, outcome.Added, err)
		} else {
			rec.LastModified = mtime
			p.log().Info("asset added", "type", t, "path", path, "id", rec.ID)
			report.Items.Add(path, outcome.Added, uint64(n)) //nolint:gosec // n >= 0
		}
		p.PreparePreview(t, rec.ID)
	case rec.LastModified != mtime || !p.library.Exists(library.AssetName(rec.ID, rec.SourcePath)):
		if n, err := p.copyToLibrary(root, rec); err != nil {
			report.Items.Fail(path, outcome.Updated, err)
		} else {
			rec.LastModified = mtime
			p.log().Info("asset updated", "type", t, "path", path, "id", rec.ID)
			report.Items.Add(path, outcome.Updated, uint64(n)) //nolint:gosec // n >= 0
		}
		p.PreparePreview(t, rec.ID)
	}
	rec.PurgeGeneration = report.Generation
}

func (p *Project) copyToLibrary(root *os.Root, rec *AssetRecord) (int64, error) {
	f, err := platform.OpenFileNoFollow(root, filepath.FromSlash(rec.SourcePath))
	if err != nil {
		p.log().Error("failed to open asset", "path", rec.SourcePath, "error", err)
		return 0, err
	}
	defer f.Close()
	n, err := p.library.Put(library.AssetName(rec.ID, rec.SourcePath), f)
	if err != nil {
		p.log().Error("failed to copy asset into library", "path", rec.SourcePath, "error", err)
		return 0, err
	}
	return n, nil
}

// sweep removes every record not stamped with the report's generation.
// Records under a directory the walk could not read are kept.
func (p *Project) sweep(report *ScanReport, skipped []string) {
	var stale []*AssetRecord
	for _, t := range assetTypes {
		for _, rec := range p.assets[t] {
			if rec.PurgeGeneration == report.Generation {
				continue
			}
			if underAny(rec.SourcePath, skipped) {
				rec.PurgeGeneration = report.Generation
				continue
			}
			stale = append(stale, rec)
		}
	}
	slices.SortFunc(stale, func(a, b *AssetRecord) int {
		return strings.Compare(a.SourcePath, b.SourcePath)
	})

	for _, rec := range stale {
		delete(p.assets[rec.Type], rec.SourcePath)
		p.RemovePreview(rec.Type, rec.ID)
		if err := p.library.Remove(library.AssetName(rec.ID, rec.SourcePath)); err != nil {
			p.log().Error("failed to remove library copy", "path", rec.SourcePath, "error", err)
			report.Items.Fail(rec.SourcePath, outcome.Removed, err)
			continue
		}
		p.log().Warn("asset removed", "type", rec.Type, "path", rec.SourcePath, "id", rec.ID)
		report.Items.Add(rec.SourcePath, outcome.Removed, 0)
	}
}

func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		if pathutil.Within(path, dir) {
			return true
		}
	}
	return false
}
