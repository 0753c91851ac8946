// Package pathutil provides helpers for slash-separated relative paths as
// produced by fs.WalkDir and stored in project databases.
package pathutil

import "strings"

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// DirPrefix converts a path to its directory prefix form.
// For ".", returns "" (empty prefix matches all).
func DirPrefix(name string) string {
	if name == "." {
		return ""
	}
	return name + "/"
}

// Within reports whether path is dir or lies below it.
func Within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, DirPrefix(dir))
}

// First returns the first element of a slash-separated path.
func First(path string) string {
	first, _, _ := strings.Cut(path, "/")
	return first
}
