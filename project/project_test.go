package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ultra/internal/testutil"
	"github.com/meigma/ultra/library"
)

func TestCreateEmptyProject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p, err := Create("demo", dir, true)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, filepath.Join(dir, "demo"), p.Root())
	assert.Equal(t, "demo", p.Name())
	assert.Zero(t, p.Len())

	// No assets means no Library directory.
	_, err = os.Stat(filepath.Join(p.Root(), library.DirName))
	require.ErrorIs(t, err, os.ErrNotExist)

	rec, err := ReadDatabase(p.DatabasePath())
	require.NoError(t, err)
	assert.Equal(t, "demo", rec.Name)
	assert.Equal(t, CurrentVersion, rec.Version)
	assert.Empty(t, rec.Assets)
}

func TestCreateRequiresExistingDirectory(t *testing.T) {
	t.Parallel()

	_, err := Create("demo", filepath.Join(t.TempDir(), "missing"), false)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	t.Parallel()

	_, err := Create(" ", t.TempDir(), false)
	require.ErrorIs(t, err, ErrInvalidDatabase)
}

func TestCreateRefusesExistingDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.obj", []byte("a"))
	p, err := Create("demo", dir, false)
	require.NoError(t, err)
	rec, ok := p.Asset("a.obj")
	require.True(t, ok)
	require.NoError(t, p.Close())

	_, err = Create("again", dir, false)
	require.ErrorIs(t, err, ErrDatabaseExists)

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, "demo", reopened.Name())
	kept, ok := reopened.Asset("a.obj")
	require.True(t, ok)
	assert.Equal(t, rec.ID, kept.ID)
}

func TestOpenMissingDatabase(t *testing.T) {
	t.Parallel()

	_, err := Open(t.TempDir())
	require.ErrorIs(t, err, ErrNoDatabase)
}

func TestOpenInvalidDatabase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "not json", content: "{{", want: ErrMalformedDatabase},
		{name: "empty name", content: `{"name": "", "version": 1, "assets": []}`, want: ErrInvalidDatabase},
		{name: "zero version", content: `{"name": "x", "version": 0}`, want: ErrInvalidDatabase},
		{
			name:    "escaping path",
			content: `{"name": "x", "version": 1, "assets": [{"id": "` + uuid.NewString() + `", "type": "model", "sourcePath": "../a.obj"}]}`,
			want:    ErrInvalidDatabase,
		},
		{
			name:    "unknown type",
			content: `{"name": "x", "version": 1, "assets": [{"id": "` + uuid.NewString() + `", "type": "sound", "sourcePath": "a.wav"}]}`,
			want:    ErrMalformedDatabase,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			testutil.WriteFile(t, dir, DatabaseName, []byte(tt.content))
			_, err := Open(dir)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseDatabaseAcceptsComments(t *testing.T) {
	t.Parallel()

	rec, err := ParseDatabase([]byte(`{
		// project name
		"name": "demo",
		"version": 1,
		"assets": [],
	}`))
	require.NoError(t, err)
	assert.Equal(t, "demo", rec.Name)
}

func TestPersistAndReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"models/robot.obj":   "v 0 0 0",
		"textures/skin.PNG":  "png",
		"notes/readme.txt":   "ignored",
		"textures/metal.tga": "tga",
	})

	p, err := Create("demo", dir, false)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	before := p.Assets()
	require.NoError(t, p.Persist("renamed"))
	require.NoError(t, p.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, "renamed", reopened.Name())
	after := reopened.Assets()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].SourcePath, after[i].SourcePath)
		assert.Equal(t, before[i].LastModified, after[i].LastModified)
	}
	assert.Empty(t, reopened.LastScan().Added())
	assert.Empty(t, reopened.LastScan().Removed())
	assert.Greater(t, reopened.LastScan().Generation, before[0].PurgeGeneration)
}

func TestPersistEmptyNameKeepsName(t *testing.T) {
	t.Parallel()

	p, err := Create("demo", t.TempDir(), false)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Persist(""))
	rec, err := ReadDatabase(p.DatabasePath())
	require.NoError(t, err)
	assert.Equal(t, "demo", rec.Name)
}

func TestAssetsOrderedByTypeThenPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"b.png": "b", "a.jpg": "a", "z.obj": "z", "m.fbx": "m",
	})
	p, err := Create("demo", dir, false)
	require.NoError(t, err)
	defer p.Close()

	var got []string
	for _, a := range p.Assets() {
		got = append(got, a.Type.String()+":"+a.SourcePath)
	}
	assert.Equal(t, []string{"model:m.fbx", "model:z.obj", "texture:a.jpg", "texture:b.png"}, got)
}

func TestClosedProject(t *testing.T) {
	t.Parallel()

	p, err := Create("demo", t.TempDir(), false)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	require.ErrorIs(t, p.Close(), ErrClosed)
	_, err = p.Scan()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, p.Persist(""), ErrClosed)
}

func TestBuildIndexAdvancesEpoch(t *testing.T) {
	t.Parallel()

	p, err := Create("demo", t.TempDir(), false)
	require.NoError(t, err)
	defer p.Close()

	id := uuid.New()
	p.BuildIndex(Record{
		Name:    "loaded",
		Version: 1,
		Assets: []AssetRecord{
			{ID: id, Type: Model, SourcePath: "gone.obj", PurgeGeneration: 41},
		},
	})
	assert.Equal(t, "loaded", p.Name())
	rec, ok := p.GetAsset(id)
	require.True(t, ok)
	assert.Equal(t, "gone.obj", rec.SourcePath)

	report, err := p.Scan()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), report.Generation)
	assert.Equal(t, []string{"gone.obj"}, report.Removed())
	_, ok = p.GetAsset(id)
	assert.False(t, ok)
}

func TestAssetTypeText(t *testing.T) {
	t.Parallel()

	for _, at := range []AssetType{Unknown, Model, Texture} {
		text, err := at.MarshalText()
		require.NoError(t, err)
		var got AssetType
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, at, got)
	}
	var bad AssetType
	require.Error(t, bad.UnmarshalText([]byte("sound")))
}

func TestDetectType(t *testing.T) {
	t.Parallel()

	p, err := Create("demo", t.TempDir(), false, WithTextureExtensions("PNG", ".webp"))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, Model, p.DetectType("a/b/Robot.OBJ"))
	assert.Equal(t, Texture, p.DetectType("skin.png"))
	assert.Equal(t, Texture, p.DetectType("skin.webp"))
	assert.Equal(t, Unknown, p.DetectType("skin.jpg"))
	assert.Equal(t, Unknown, p.DetectType("Makefile"))
	assert.Equal(t, []string{".png", ".webp"}, p.Extensions(Texture))
}

func TestRecordValidateJoinsErrors(t *testing.T) {
	t.Parallel()

	rec := Record{Version: 0, Assets: []AssetRecord{{Type: Model, SourcePath: "/abs.obj"}}}
	err := rec.Validate()
	require.ErrorIs(t, err, ErrInvalidDatabase)
	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Contains(t, err.Error(), "name is empty")
	assert.Contains(t, err.Error(), "missing id")
	assert.Contains(t, err.Error(), "invalid source path")
}
