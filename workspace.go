package ultra

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/meigma/ultra/codec"
	"github.com/meigma/ultra/config"
	"github.com/meigma/ultra/project"
	"github.com/meigma/ultra/scene"
)

// Workspace holds the currently loaded project and the settings used to
// scan it and to read and write its archives. It is not safe for
// concurrent use.
type Workspace struct {
	project *project.Project
	codec   *codec.Codec
	logger  *slog.Logger

	modelExts       []string
	textureExts     []string
	algorithm       codec.Algorithm
	level           int
	maxResourceSize uint64
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger passed to every component.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithExtensions replaces the model and texture extension sets. A nil
// slice keeps the default for that type.
func WithExtensions(models, textures []string) Option {
	return func(w *Workspace) {
		w.modelExts = models
		w.textureExts = textures
	}
}

// WithCompression selects the archive compression algorithm and level.
// A zero level uses the algorithm's default.
func WithCompression(alg codec.Algorithm, level int) Option {
	return func(w *Workspace) {
		w.algorithm = alg
		w.level = level
	}
}

// WithMaxResourceSize limits each resource stored in a scene archive.
func WithMaxResourceSize(n uint64) Option {
	return func(w *Workspace) {
		w.maxResourceSize = n
	}
}

// WithConfig applies the asset, compression, and size settings of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(w *Workspace) {
		w.modelExts = cfg.ModelExtensions
		w.textureExts = cfg.TextureExtensions
		w.algorithm = cfg.Algorithm()
		w.level = cfg.CompressionLevel
		w.maxResourceSize = cfg.MaxResourceSize
	}
}

// New returns an empty Workspace.
func New(opts ...Option) (*Workspace, error) {
	w := &Workspace{maxResourceSize: scene.DefaultMaxResourceSize}
	for _, opt := range opts {
		opt(w)
	}
	codecOpts := []codec.Option{codec.WithAlgorithm(w.algorithm), codec.WithLogger(w.log())}
	if w.level != 0 {
		codecOpts = append(codecOpts, codec.WithLevel(w.level))
	}
	c, err := codec.New(codecOpts...)
	if err != nil {
		return nil, err
	}
	w.codec = c
	return w, nil
}

// Close closes the loaded project and releases the codec.
func (w *Workspace) Close() error {
	err := w.CloseProject()
	w.codec.Close()
	return err
}

// NewProject creates a project and makes it the loaded project. Any
// previously loaded project is closed first.
func (w *Workspace) NewProject(name, dir string, createDirectory bool) error {
	if err := w.CloseProject(); err != nil {
		return err
	}
	p, err := project.Create(name, dir, createDirectory, w.projectOptions()...)
	if err != nil {
		return err
	}
	w.project = p
	return nil
}

// OpenProject opens the project at dir and makes it the loaded project.
// On failure the previously loaded project stays loaded.
func (w *Workspace) OpenProject(dir string) error {
	p, err := project.Open(dir, w.projectOptions()...)
	if err != nil {
		return err
	}
	if err := w.CloseProject(); err != nil {
		_ = p.Close()
		return err
	}
	w.project = p
	return nil
}

// CloseProject closes the loaded project, if any.
func (w *Workspace) CloseProject() error {
	if w.project == nil {
		return nil
	}
	err := w.project.Close()
	w.project = nil
	if errors.Is(err, project.ErrClosed) {
		return nil
	}
	return err
}

// Project returns the loaded project, or nil.
func (w *Workspace) Project() *project.Project {
	return w.project
}

// IsLoaded reports whether a project is loaded.
func (w *Workspace) IsLoaded() bool {
	return w.project != nil
}

// Activate re-scans the loaded project.
func (w *Workspace) Activate() (*project.ScanReport, error) {
	if w.project == nil {
		return nil, ErrNoProject
	}
	return w.project.Scan()
}

// SaveProject persists the loaded project's database. An empty name keeps
// the current name.
func (w *Workspace) SaveProject(name string) error {
	if w.project == nil {
		return ErrNoProject
	}
	return w.project.Persist(name)
}

// Archiver returns a scene archiver that extracts into the loaded
// project's Library.
func (w *Workspace) Archiver() (*scene.Archiver, error) {
	if w.project == nil {
		return nil, ErrNoProject
	}
	a, err := scene.NewArchiver(w.project.Library().Dir(),
		scene.WithCodec(w.codec),
		scene.WithLogger(w.log()),
		scene.WithMaxResourceSize(w.maxResourceSize),
	)
	if err != nil {
		return nil, fmt.Errorf("scene archiver: %w", err)
	}
	return a, nil
}

func (w *Workspace) projectOptions() []project.Option {
	opts := []project.Option{project.WithLogger(w.log())}
	if w.modelExts != nil {
		opts = append(opts, project.WithModelExtensions(w.modelExts...))
	}
	if w.textureExts != nil {
		opts = append(opts, project.WithTextureExtensions(w.textureExts...))
	}
	return opts
}

func (w *Workspace) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}
