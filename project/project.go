// Package project tracks the source assets under a project directory.
//
// A Project keeps one record per supported file, mirrors each file into the
// project's Library directory, and persists the index to db.ultra. Scan
// reconciles the index with the filesystem using generational
// mark-and-sweep: every visited file is stamped with the new epoch, and any
// record left with an older epoch is removed.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/meigma/ultra/library"
	"github.com/meigma/ultra/preview"
)

// Project is an open project directory. It is not safe for concurrent use.
type Project struct {
	root    string
	name    string
	library *library.Library
	logger  *slog.Logger

	models   extensionSet
	textures extensionSet

	assets   map[AssetType]map[string]*AssetRecord
	previews map[AssetType]map[uuid.UUID]preview.Handle

	epoch    uint64
	lastScan *ScanReport
	closed   bool
}

// Option configures a Project.
type Option func(*Project)

// WithLogger sets the logger for scan and persistence events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Project) {
		p.logger = logger
	}
}

// WithModelExtensions replaces the model extension set.
func WithModelExtensions(exts ...string) Option {
	return func(p *Project) {
		p.models = newExtensionSet(exts)
	}
}

// WithTextureExtensions replaces the texture extension set.
func WithTextureExtensions(exts ...string) Option {
	return func(p *Project) {
		p.textures = newExtensionSet(exts)
	}
}

func newProject(root string, opts ...Option) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	p := &Project{
		root:     abs,
		models:   newExtensionSet(DefaultModelExtensions),
		textures: newExtensionSet(DefaultTextureExtensions),
	}
	for _, opt := range opts {
		opt(p)
	}
	lib, err := library.ForProject(abs, library.WithLogger(p.log()))
	if err != nil {
		return nil, err
	}
	p.library = lib
	p.reset()
	return p, nil
}

// Create starts a new project named name. When createDirectory is set the
// project root is dir/name, otherwise dir itself. dir must already exist
// and the root must not already hold a database (ErrDatabaseExists).
// The fresh database is persisted before the initial scan.
func Create(name, dir string, createDirectory bool, opts ...Option) (*Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidDatabase)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project directory: %s is not a directory", dir)
	}

	root := dir
	if createDirectory {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return nil, fmt.Errorf("project name %q is not a directory name", name)
		}
		root = filepath.Join(dir, name)
		if err := os.MkdirAll(root, 0o750); err != nil {
			return nil, fmt.Errorf("create project directory: %w", err)
		}
	}

	if _, err := os.Lstat(filepath.Join(root, DatabaseName)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseExists, root)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("check database: %w", err)
	}

	p, err := newProject(root, opts...)
	if err != nil {
		return nil, err
	}
	p.name = name
	if err := p.Persist(""); err != nil {
		return nil, err
	}
	if _, err := p.Scan(); err != nil {
		return nil, err
	}
	p.log().Info("project created", "name", name, "root", p.root)
	return p, nil
}

// Open loads the project rooted at dir and scans it.
func Open(dir string, opts ...Option) (*Project, error) {
	rec, err := ReadDatabase(filepath.Join(dir, DatabaseName))
	if err != nil {
		return nil, err
	}
	p, err := newProject(dir, opts...)
	if err != nil {
		return nil, err
	}
	p.BuildIndex(rec)
	if _, err := p.Scan(); err != nil {
		return nil, err
	}
	p.log().Info("project opened", "name", p.name, "root", p.root, "assets", p.Len())
	return p, nil
}

// Close releases every preview handle. Further operations return ErrClosed.
func (p *Project) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.releasePreviews()
	p.closed = true
	return nil
}

// Root returns the absolute project root.
func (p *Project) Root() string {
	return p.root
}

// Name returns the project name.
func (p *Project) Name() string {
	return p.name
}

// DatabasePath returns the path of db.ultra.
func (p *Project) DatabasePath() string {
	return filepath.Join(p.root, DatabaseName)
}

// Library returns the project's Library directory.
func (p *Project) Library() *library.Library {
	return p.library
}

// LibraryPath returns the Library copy location for rec.
func (p *Project) LibraryPath(rec AssetRecord) string {
	return p.library.Path(library.AssetName(rec.ID, rec.SourcePath))
}

// LastScan returns the report of the most recent scan, or nil.
func (p *Project) LastScan() *ScanReport {
	return p.lastScan
}

// DetectType classifies path by its extension.
func (p *Project) DetectType(path string) AssetType {
	switch {
	case p.models.match(path):
		return Model
	case p.textures.match(path):
		return Texture
	default:
		return Unknown
	}
}

// Extensions returns the sorted extension set for t.
func (p *Project) Extensions(t AssetType) []string {
	switch t {
	case Model:
		return p.models.sorted()
	case Texture:
		return p.textures.sorted()
	default:
		return nil
	}
}

// GetAsset looks up a record by id across both buckets.
func (p *Project) GetAsset(id uuid.UUID) (AssetRecord, bool) {
	for _, t := range assetTypes {
		for _, rec := range p.assets[t] {
			if rec.ID == id {
				return *rec, true
			}
		}
	}
	return AssetRecord{}, false
}

// Asset looks up a record by its slash-separated source path.
func (p *Project) Asset(sourcePath string) (AssetRecord, bool) {
	t := p.DetectType(sourcePath)
	rec, ok := p.assets[t][sourcePath]
	if !ok {
		return AssetRecord{}, false
	}
	return *rec, true
}

// Assets returns a snapshot of every record ordered by type, then path.
func (p *Project) Assets() []AssetRecord {
	out := make([]AssetRecord, 0, p.Len())
	for _, t := range assetTypes {
		for _, rec := range p.assets[t] {
			out = append(out, *rec)
		}
	}
	sortRecords(out)
	return out
}

// Len returns the number of tracked records.
func (p *Project) Len() int {
	n := 0
	for _, t := range assetTypes {
		n += len(p.assets[t])
	}
	return n
}

// Persist writes the index to db.ultra. An empty name keeps the current
// name. The Library is not touched.
func (p *Project) Persist(name string) error {
	if p.closed {
		return ErrClosed
	}
	if name == "" {
		name = p.name
	}
	rec := Record{Name: name, Version: CurrentVersion, Assets: p.Assets()}
	if err := WriteDatabase(p.DatabasePath(), rec); err != nil {
		return err
	}
	p.name = name
	p.log().Info("project saved", "name", name, "assets", len(rec.Assets))
	return nil
}

// BuildIndex replaces the index with the records in rec. Each record gets
// a pending preview slot, and the epoch advances past every stamped
// generation.
func (p *Project) BuildIndex(rec Record) {
	p.releasePreviews()
	p.reset()
	p.name = rec.Name
	for _, a := range rec.Assets {
		if a.Type != Model && a.Type != Texture {
			p.log().Warn("dropping record with unsupported type", "path", a.SourcePath, "type", a.Type)
			continue
		}
		stored := a
		p.assets[a.Type][a.SourcePath] = &stored
		p.PreparePreview(a.Type, a.ID)
		p.epoch = max(p.epoch, a.PurgeGeneration)
	}
}

func (p *Project) reset() {
	p.assets = make(map[AssetType]map[string]*AssetRecord, len(assetTypes))
	p.previews = make(map[AssetType]map[uuid.UUID]preview.Handle, len(assetTypes))
	for _, t := range assetTypes {
		p.assets[t] = make(map[string]*AssetRecord)
		p.previews[t] = make(map[uuid.UUID]preview.Handle)
	}
}

func (p *Project) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.New(slog.DiscardHandler)
}
