package ultra

import (
	"path/filepath"
	"strings"

	"github.com/meigma/ultra/scene"
)

// SceneFilter is the file dialog filter for scene archives.
const SceneFilter = "UltraEd (*.ultra)"

// FilePicker asks the user for a file path. Implementations return
// ErrCancelled when the dialog is dismissed.
type FilePicker interface {
	SaveFile(title, filter string) (string, error)
	OpenFile(title, filter string) (string, error)
}

// SceneName returns the base name of path up to its first dot.
func SceneName(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name
}

// ScenePath appends the scene extension to path when it is missing.
func ScenePath(path string) string {
	if strings.Contains(filepath.Base(path), scene.Extension) {
		return path
	}
	return path + scene.Extension
}

// SaveScene writes savables to the scene archive at path, appending the
// scene extension when missing.
func (w *Workspace) SaveScene(savables []scene.Savable, path string) (*scene.SaveReport, error) {
	a, err := w.Archiver()
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Save(savables, ScenePath(path))
}

// SaveSceneAs asks picker for a destination and saves the scene there.
func (w *Workspace) SaveSceneAs(picker FilePicker, savables []scene.Savable) (*scene.SaveReport, error) {
	if w.project == nil {
		return nil, ErrNoProject
	}
	path, err := picker.SaveFile("Save Scene", SceneFilter)
	if err != nil {
		return nil, err
	}
	return w.SaveScene(savables, path)
}

// LoadScene loads the scene archive at path into the loaded project. The
// archive file is removed on success.
func (w *Workspace) LoadScene(path string) (*scene.LoadResult, error) {
	a, err := w.Archiver()
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Load(path)
}

// LoadSceneFrom asks picker for a scene archive and loads it.
func (w *Workspace) LoadSceneFrom(picker FilePicker) (*scene.LoadResult, string, error) {
	if w.project == nil {
		return nil, "", ErrNoProject
	}
	path, err := picker.OpenFile("Load Scene", SceneFilter)
	if err != nil {
		return nil, "", err
	}
	res, err := w.LoadScene(path)
	if err != nil {
		return nil, "", err
	}
	return res, SceneName(path), nil
}
