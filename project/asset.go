package project

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// AssetType classifies a tracked file.
type AssetType uint8

const (
	// Unknown is an unsupported or unrecognized file.
	Unknown AssetType = iota
	// Model is a 3D model file.
	Model
	// Texture is an image file.
	Texture
)

// assetTypes lists the tracked buckets in persistence order.
var assetTypes = []AssetType{Model, Texture}

// String returns the lower-case type name.
func (t AssetType) String() string {
	switch t {
	case Model:
		return "model"
	case Texture:
		return "texture"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t AssetType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *AssetType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "model":
		*t = Model
	case "texture":
		*t = Texture
	case "unknown":
		*t = Unknown
	default:
		return fmt.Errorf("unknown asset type %q", text)
	}
	return nil
}

// Default extension sets, matched case-insensitively.
var (
	DefaultModelExtensions   = []string{".3ds", ".fbx", ".dae", ".x", ".stl", ".wrl", ".obj"}
	DefaultTextureExtensions = []string{".png", ".jpg", ".bmp", ".tga"}
)

// AssetRecord describes one tracked source file.
type AssetRecord struct {
	// ID identifies the asset for as long as SourcePath exists.
	ID uuid.UUID `json:"id"`

	// Type is the bucket the asset is tracked in.
	Type AssetType `json:"type"`

	// SourcePath is the slash-separated path relative to the project root.
	SourcePath string `json:"sourcePath"`

	// LastModified is the source file's modification time in Unix nanoseconds
	// as of the last Library copy.
	LastModified int64 `json:"lastModified"`

	// PurgeGeneration is the scan epoch that last observed the file.
	PurgeGeneration uint64 `json:"purgeGeneration"`
}

// CurrentVersion is the database version written by Persist.
const CurrentVersion = 1

// Record is the serialized form of a project database.
type Record struct {
	Name    string        `json:"name"`
	Version int           `json:"version"`
	Assets  []AssetRecord `json:"assets"`
}

// Validate checks the required database fields.
func (r *Record) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	if r.Version < 1 {
		errs = append(errs, fmt.Errorf("version %d is less than 1", r.Version))
	}
	for i, a := range r.Assets {
		if a.Type != Model && a.Type != Texture {
			errs = append(errs, fmt.Errorf("asset %d: unsupported type %s", i, a.Type))
		}
		if a.ID == uuid.Nil {
			errs = append(errs, fmt.Errorf("asset %d: missing id", i))
		}
		if !fs.ValidPath(a.SourcePath) || a.SourcePath == "." {
			errs = append(errs, fmt.Errorf("asset %d: invalid source path %q", i, a.SourcePath))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDatabase, errors.Join(errs...))
	}
	return nil
}

// extensionSet is a case-insensitive set of file extensions.
type extensionSet map[string]struct{}

func newExtensionSet(exts []string) extensionSet {
	set := make(extensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

func (s extensionSet) match(path string) bool {
	_, ok := s[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (s extensionSet) sorted() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// sortRecords orders records by type bucket, then path.
func sortRecords(records []AssetRecord) {
	slices.SortFunc(records, func(a, b AssetRecord) int {
		if a.Type != b.Type {
			return int(a.Type) - int(b.Type)
		}
		return strings.Compare(a.SourcePath, b.SourcePath)
	})
}
