// Package ultra keeps a scene editor's project directory in sync with its
// asset database and moves scenes and projects in and out of portable
// compressed archives.
//
// A [Workspace] holds at most one loaded project. Opening or creating a
// project scans its directory: every supported model and texture is copied
// into the project's Library under a stable id, and files that disappeared
// since the last scan are dropped. Scans are explicit; call
// [Workspace.Activate] whenever the editor regains focus.
//
// # Quick Start
//
//	ws, err := ultra.New(ultra.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer ws.Close()
//
//	if err := ws.OpenProject("./game"); err != nil {
//	    return err
//	}
//	report, err := ws.Activate()
//
// # Scenes
//
// Scenes are saved from [scene.Savable] editor objects. Each attached
// resource file is stored in the archive, and loading extracts model
// resources into the Library:
//
//	_, err = ws.SaveScene(savables, "level1.ultra")
//	result, err := ws.LoadScene("level1.ultra")
//
// Loading consumes the archive file.
//
// # Packs
//
// [Workspace.PackProject] bundles the database and every tracked source
// file into a single archive; [Workspace.UnpackProject] restores it into a
// directory and opens the result.
package ultra
