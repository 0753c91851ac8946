// Package scene saves editor scenes into compressed archives and loads
// them back.
//
// A scene archive is a codec blob wrapping an archive container. The
// container holds the root document under [SceneEntry] and one entry per
// attached resource file. The root document is a JSON object with a key
// per editor-level fragment and a "models" array of model fragments; each
// fragment lists its resources as [{role: filename}, ...].
package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/meigma/ultra/codec"
	"github.com/meigma/ultra/library"
)

// Reserved document keys and entry names.
const (
	SceneEntry   = "scene.json"
	ModelsKey    = "models"
	ResourcesKey = "resources"
	Extension    = ".ultra"
)

// DefaultMaxResourceSize bounds a single resource read during Save.
const DefaultMaxResourceSize = 256 << 20

var (
	// ErrMissingScene is returned when an archive has no scene entry.
	ErrMissingScene = errors.New("scene: archive has no scene.json entry")

	// ErrInvalidDocument is returned when the scene entry is not a valid
	// root document.
	ErrInvalidDocument = errors.New("scene: invalid scene document")

	// ErrInvalidFragment is returned when a savable produces a fragment
	// that cannot be placed in the root document.
	ErrInvalidFragment = errors.New("scene: invalid fragment")

	// ErrResourceTooLarge is returned when a resource exceeds the size limit.
	ErrResourceTooLarge = errors.New("scene: resource too large")
)

// Kind classifies a fragment.
type Kind uint8

const (
	// KindEditor is a singleton fragment merged into the root under its key.
	KindEditor Kind = iota + 1
	// KindModel is a repeatable fragment appended to the models array.
	KindModel
)

func (k Kind) String() string {
	switch k {
	case KindEditor:
		return "editor"
	case KindModel:
		return "model"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Fragment is the document contribution of one savable.
type Fragment struct {
	Kind Kind
	// Key names an editor fragment in the root document. Unused for models.
	Key      string
	Document map[string]any
}

// Savable is an editor object that can be written to a scene.
type Savable interface {
	Save() Fragment
	// Resources maps a role to the absolute path of a file the fragment
	// depends on.
	Resources() map[string]string
}

// Archiver saves and loads scene archives, extracting model resources
// into a Library directory.
type Archiver struct {
	library         *library.Library
	codec           *codec.Codec
	ownsCodec       bool
	maxResourceSize uint64
	logger          *slog.Logger
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithCodec sets the codec used for the archive blob. The caller keeps
// ownership of c.
func WithCodec(c *codec.Codec) Option {
	return func(a *Archiver) {
		a.codec = c
	}
}

// WithLogger sets the logger for save and load events.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archiver) {
		a.logger = logger
	}
}

// WithMaxResourceSize limits the size of each resource read during Save.
// Zero disables the limit.
func WithMaxResourceSize(n uint64) Option {
	return func(a *Archiver) {
		a.maxResourceSize = n
	}
}

// NewArchiver returns an Archiver that extracts resources into libraryDir.
// Without WithCodec a default zstd codec is created and owned by the
// Archiver.
func NewArchiver(libraryDir string, opts ...Option) (*Archiver, error) {
	a := &Archiver{maxResourceSize: DefaultMaxResourceSize}
	for _, opt := range opts {
		opt(a)
	}
	lib, err := library.New(libraryDir, library.WithLogger(a.log()))
	if err != nil {
		return nil, err
	}
	a.library = lib
	if a.codec == nil {
		c, err := codec.New(codec.WithLogger(a.log()))
		if err != nil {
			return nil, err
		}
		a.codec = c
		a.ownsCodec = true
	}
	return a, nil
}

// Close releases the codec if the Archiver created it.
func (a *Archiver) Close() {
	if a.ownsCodec {
		a.codec.Close()
	}
}

func (a *Archiver) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}
