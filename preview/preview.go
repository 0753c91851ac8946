// Package preview defines the rendering collaborator used to produce asset
// thumbnails, and a Thumbnailer that renders texture previews in process.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"

	"github.com/meigma/ultra/internal/sizing"
)

// DefaultSize is the edge length in pixels of a square preview.
const DefaultSize = 128

// maxSourceBytes bounds the texture file read for a preview.
const maxSourceBytes = 256 << 20

var (
	// ErrUnsupported is returned when an asset cannot be previewed.
	ErrUnsupported = errors.New("preview: unsupported format")

	// ErrTooLarge is returned when a source file exceeds the preview read limit.
	ErrTooLarge = errors.New("preview: source too large")
)

// Handle is a rendered preview. Handles are owned by whoever requested the
// render and must be released exactly once.
type Handle interface {
	Release()
}

// Renderer produces fixed-size previews from asset files.
type Renderer interface {
	// RenderTexture renders a preview of the texture file at path.
	RenderTexture(path string) (Handle, error)

	// RenderModel renders a preview of the model file at path.
	RenderModel(path string) (Handle, error)
}

// ModelRenderer draws a model file into an image of the requested size.
// Model parsing and rasterization live outside this module.
type ModelRenderer interface {
	RenderModel(path string, size int) (image.Image, error)
}

// Thumbnail is an in-memory preview image.
type Thumbnail struct {
	Image *image.RGBA
}

// Release drops the preview image.
func (t *Thumbnail) Release() {
	t.Image = nil
}

// Thumbnailer renders texture previews by decoding and resizing the image
// file, and delegates model previews to an optional ModelRenderer.
type Thumbnailer struct {
	size   int
	models ModelRenderer
	logger *slog.Logger
}

// Option configures a Thumbnailer.
type Option func(*Thumbnailer)

// WithSize sets the preview edge length in pixels.
func WithSize(n int) Option {
	return func(t *Thumbnailer) {
		if n > 0 {
			t.size = n
		}
	}
}

// WithModelRenderer sets the renderer used for model previews.
// Without one, RenderModel returns ErrUnsupported.
func WithModelRenderer(m ModelRenderer) Option {
	return func(t *Thumbnailer) {
		t.models = m
	}
}

// WithLogger sets the logger for render operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Thumbnailer) {
		t.logger = logger
	}
}

// NewThumbnailer creates a Thumbnailer.
func NewThumbnailer(opts ...Option) *Thumbnailer {
	t := &Thumbnailer{size: DefaultSize}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Size returns the preview edge length in pixels.
func (t *Thumbnailer) Size() int {
	return t.size
}

// RenderTexture decodes the image at path and scales it to the preview size.
func (t *Thumbnailer) RenderTexture(path string) (Handle, error) {
	f, err := os.Open(path) //nolint:gosec // Library path owned by the project
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := sizing.ReadAllWithLimit(f, maxSourceBytes, ErrTooLarge)
	if err != nil {
		return nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	t.log().Debug("rendered texture preview", "path", path, "size", t.size)
	return &Thumbnail{Image: transform.Resize(img, t.size, t.size, transform.Linear)}, nil
}

// RenderModel renders the model at path through the configured ModelRenderer.
func (t *Thumbnailer) RenderModel(path string) (Handle, error) {
	if t.models == nil {
		return nil, fmt.Errorf("%w: no model renderer configured", ErrUnsupported)
	}
	img, err := t.models.RenderModel(path, t.size)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Dx() == t.size && b.Dy() == t.size {
		return &Thumbnail{Image: rgba}, nil
	}
	t.log().Debug("rendered model preview", "path", path, "size", t.size)
	return &Thumbnail{Image: transform.Resize(img, t.size, t.size, transform.Linear)}, nil
}

// decode sniffs the image format from content rather than the extension.
func decode(data []byte) (image.Image, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, ErrUnsupported
	}

	r := bytes.NewReader(data)
	switch kind.Extension {
	case "png":
		return png.Decode(r)
	case "jpg":
		return jpeg.Decode(r)
	case "gif":
		return gif.Decode(r)
	case "bmp":
		return bmp.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind.MIME.Value)
	}
}

// log returns the logger, falling back to a discard logger if nil.
func (t *Thumbnailer) log() *slog.Logger {
	if t.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.logger
}
