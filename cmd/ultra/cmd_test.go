package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ultra/internal/testutil"
	"github.com/meigma/ultra/scene"
)

// run executes the CLI with a config file that does not exist, so the
// defaults apply.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInitScanAssets(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "init", "demo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `Created project "demo"`)

	testutil.WriteFile(t, dir, "models/robot.obj", []byte("v 1 2 3"))
	out, err = run(t, "-C", dir, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "added models/robot.obj")
	assert.Contains(t, out, "1 assets tracked")

	out, err = run(t, "-C", dir, "assets", "--type", "model")
	require.NoError(t, err)
	assert.Contains(t, out, "models/robot.obj")

	_, err = run(t, "-C", dir, "assets", "--type", "sound")
	require.Error(t, err)
}

func TestScanWithoutProject(t *testing.T) {
	_, err := run(t, "-C", t.TempDir(), "scan")
	require.Error(t, err)
}

func TestSaveInspectLoad(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "init", "demo", dir)
	require.NoError(t, err)
	testutil.WriteFile(t, dir, "models/robot.obj", []byte("v 1 2 3"))

	spec := testutil.WriteFile(t, t.TempDir(), "scene.jsonc", []byte(`{
		// a single model
		"editor": {"camera": {"fov": 45}},
		"models": [{"document": {"name": "robot"}, "resources": {"model": "models/robot.obj"}}],
	}`))
	dest := filepath.Join(t.TempDir(), "level1")

	out, err := run(t, "-C", dir, "save", spec, dest)
	require.NoError(t, err)
	assert.Contains(t, out, `Saved scene "level1"`)

	out, err = run(t, "inspect", dest+scene.Extension)
	require.NoError(t, err)
	assert.Contains(t, out, "robot.obj")
	assert.Contains(t, out, scene.SceneEntry)
	assert.Contains(t, out, "2 entries")

	out, err = run(t, "-C", dir, "load", "--print", dest+scene.Extension)
	require.NoError(t, err)
	assert.Contains(t, out, "with 1 models")
	assert.Contains(t, out, `"camera"`)
	assert.FileExists(t, filepath.Join(dir, "Library", "robot.obj"))
	assert.NoFileExists(t, dest+scene.Extension)
}

func TestPackUnpack(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.obj": "a", "t/b.png": "b"})
	_, err := run(t, "init", "demo", dir)
	require.NoError(t, err)

	pack := filepath.Join(t.TempDir(), "demo.pack")
	out, err := run(t, "-C", dir, "pack", pack)
	require.NoError(t, err)
	assert.Contains(t, out, "Packed 2 assets")

	restored := filepath.Join(t.TempDir(), "restored")
	out, err = run(t, "unpack", pack, restored)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 assets)")
	data, err := os.ReadFile(filepath.Join(restored, "t", "b.png"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestParseSceneSpec(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "skin.png")
	savables, err := parseSceneSpec([]byte(`{
		"editor": {"zeta": {}, "alpha": {"x": 1}},
		"models": [{"document": {"name": "m"}, "resources": {"model": "a/m.obj", "texture": `+quote(abs)+`}}]
	}`), base)
	require.NoError(t, err)
	require.Len(t, savables, 3)

	assert.Equal(t, "alpha", savables[0].Save().Key)
	assert.Equal(t, "zeta", savables[1].Save().Key)
	assert.Equal(t, scene.KindModel, savables[2].Save().Kind)
	assert.Equal(t, map[string]string{
		"model":   filepath.Join(base, "a", "m.obj"),
		"texture": abs,
	}, savables[2].Resources())

	_, err = parseSceneSpec([]byte("{"), base)
	require.Error(t, err)
}

func TestIgnoreProjectFiles(t *testing.T) {
	t.Parallel()

	assert.True(t, ignoreProjectFiles("Library"))
	assert.True(t, ignoreProjectFiles("Library/x.obj"))
	assert.True(t, ignoreProjectFiles("db.ultra"))
	assert.True(t, ignoreProjectFiles("models/.ultra-123"))
	assert.False(t, ignoreProjectFiles("models/robot.obj"))
	assert.False(t, ignoreProjectFiles("LibraryExtra/x.obj"))
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
