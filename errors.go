package ultra

import (
	"errors"

	"github.com/meigma/ultra/archive"
	"github.com/meigma/ultra/codec"
	"github.com/meigma/ultra/project"
	"github.com/meigma/ultra/scene"
)

var (
	// ErrNoProject is returned when an operation needs a loaded project.
	ErrNoProject = errors.New("ultra: no project loaded")

	// ErrCancelled is returned by a FilePicker when the dialog is dismissed.
	ErrCancelled = errors.New("ultra: cancelled")

	// ErrInvalidPack is returned when a pack archive lacks its manifest or
	// database, or its manifest cannot be parsed.
	ErrInvalidPack = errors.New("ultra: invalid pack")

	// ErrUnsafePath is returned when a pack entry would be written outside
	// the target directory or over the Library.
	ErrUnsafePath = errors.New("ultra: unsafe path in pack")
)

// Errors re-exported from project.
var (
	// ErrNoDatabase is returned when a directory has no project database.
	ErrNoDatabase = project.ErrNoDatabase

	// ErrMalformedDatabase is returned when the database cannot be parsed.
	ErrMalformedDatabase = project.ErrMalformedDatabase

	// ErrInvalidDatabase is returned when the database is missing required fields.
	ErrInvalidDatabase = project.ErrInvalidDatabase

	// ErrDatabaseExists is returned when creating a project over an existing one.
	ErrDatabaseExists = project.ErrDatabaseExists
)

// Errors re-exported from scene.
var (
	// ErrMissingScene is returned when a scene archive has no scene entry.
	ErrMissingScene = scene.ErrMissingScene

	// ErrInvalidDocument is returned when the scene document cannot be parsed.
	ErrInvalidDocument = scene.ErrInvalidDocument
)

// Errors re-exported from codec.
var (
	// ErrCorrupt is returned when an archive blob does not decode cleanly.
	ErrCorrupt = codec.ErrCorrupt
)

// Kind is the failure category of an error.
type Kind uint8

const (
	// KindNone is the category of a nil error.
	KindNone Kind = iota
	// UserCancelled means a dialog was dismissed. It is not reported as a failure.
	UserCancelled
	// IOFailure means a file could not be opened, read, or written.
	IOFailure
	// FormatError means an archive entry is missing or a document is unparsable.
	FormatError
	// CorruptData means decompression failed or produced the wrong size.
	CorruptData
	// ValidationError means the project database is missing required fields.
	ValidationError
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case UserCancelled:
		return "cancelled"
	case IOFailure:
		return "io"
	case FormatError:
		return "format"
	case CorruptData:
		return "corrupt"
	case ValidationError:
		return "validation"
	default:
		return "unknown"
	}
}

// Classify returns the failure category of err. Errors from outside this
// module are treated as I/O failures.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCancelled):
		return UserCancelled
	case errors.Is(err, codec.ErrCorrupt), errors.Is(err, codec.ErrSizeOverflow):
		return CorruptData
	case errors.Is(err, project.ErrInvalidDatabase), errors.Is(err, project.ErrDatabaseExists):
		return ValidationError
	case errors.Is(err, scene.ErrMissingScene),
		errors.Is(err, scene.ErrInvalidDocument),
		errors.Is(err, scene.ErrInvalidFragment),
		errors.Is(err, project.ErrMalformedDatabase),
		errors.Is(err, archive.ErrNotFound),
		errors.Is(err, archive.ErrTruncated),
		errors.Is(err, archive.ErrInvalidName),
		errors.Is(err, archive.ErrDuplicateName),
		errors.Is(err, ErrInvalidPack),
		errors.Is(err, ErrUnsafePath):
		return FormatError
	default:
		return IOFailure
	}
}
