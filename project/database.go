package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/meigma/ultra/internal/atomicfile"
)

// DatabaseName is the file name of the project database under the root.
const DatabaseName = "db.ultra"

// Sentinel errors.
var (
	// ErrNoDatabase is returned when a directory has no project database.
	ErrNoDatabase = errors.New("project: database not found")

	// ErrMalformedDatabase is returned when the database cannot be parsed.
	ErrMalformedDatabase = errors.New("project: malformed database")

	// ErrInvalidDatabase is returned when the database is missing required
	// fields (empty name, version < 1, or malformed asset rows).
	ErrInvalidDatabase = errors.New("project: invalid database")

	// ErrClosed is returned by operations on a closed project.
	ErrClosed = errors.New("project: closed")

	// ErrDatabaseExists is returned by Create when the directory already
	// holds a project database. Use Open instead.
	ErrDatabaseExists = errors.New("project: database already exists")

	// ErrInvalidPath is recorded for files whose path cannot be stored in
	// the database, such as names that are not valid UTF-8.
	ErrInvalidPath = errors.New("project: unsupported file name")
)

// ReadDatabase loads and validates the database at path. Line comments,
// block comments, and trailing commas are tolerated.
func ReadDatabase(path string) (Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // database path under project root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, fmt.Errorf("%w: %s", ErrNoDatabase, path)
		}
		return Record{}, fmt.Errorf("read database: %w", err)
	}
	return ParseDatabase(data)
}

// ParseDatabase decodes and validates database content.
func ParseDatabase(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(jsonc.ToJSON(data), &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedDatabase, err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// WriteDatabase validates rec and replaces the database at path.
func WriteDatabase(path string, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.Assets == nil {
		rec.Assets = []AssetRecord{}
	}
	data, err := json.MarshalIndent(rec, "", " ")
	if err != nil {
		return fmt.Errorf("encode database: %w", err)
	}
	data = append(data, '\n')
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write database: %w", err)
	}
	return nil
}
