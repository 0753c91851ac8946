package project

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ultra/internal/testutil"
	"github.com/meigma/ultra/library"
	"github.com/meigma/ultra/outcome"
)

func newScanProject(t *testing.T, files map[string]string) (*Project, string) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, files)
	p, err := Create("demo", dir, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, dir
}

func TestScanAddUpdateRemove(t *testing.T) {
	t.Parallel()

	p, dir := newScanProject(t, nil)

	testutil.WriteFile(t, dir, "robot.obj", []byte("v 1 1 1"))
	report, err := p.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"robot.obj"}, report.Added())

	rec, ok := p.Asset("robot.obj")
	require.True(t, ok)
	assert.Equal(t, Model, rec.Type)
	libPath := p.LibraryPath(rec)
	assert.Equal(t, filepath.Join(dir, library.DirName, rec.ID.String()+".obj"), libPath)
	data, err := os.ReadFile(libPath)
	require.NoError(t, err)
	assert.Equal(t, "v 1 1 1", string(data))

	testutil.WriteFile(t, dir, "robot.obj", []byte("v 2 2 2"))
	testutil.Touch(t, dir, "robot.obj", time.Now().Add(time.Hour))
	report, err = p.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"robot.obj"}, report.Updated())
	updated, ok := p.Asset("robot.obj")
	require.True(t, ok)
	assert.Equal(t, rec.ID, updated.ID)
	data, err = os.ReadFile(libPath)
	require.NoError(t, err)
	assert.Equal(t, "v 2 2 2", string(data))

	require.NoError(t, os.Remove(filepath.Join(dir, "robot.obj")))
	report, err = p.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"robot.obj"}, report.Removed())
	_, ok = p.GetAsset(rec.ID)
	assert.False(t, ok)
	_, err = os.Stat(libPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestScanIsIdempotent(t *testing.T) {
	t.Parallel()

	p, _ := newScanProject(t, map[string]string{
		"a.obj":        "a",
		"tex/b.jpg":    "b",
		"deep/x/c.3ds": "c",
	})
	first := p.Assets()

	report, err := p.Scan()
	require.NoError(t, err)
	assert.False(t, report.Changed())
	assert.Empty(t, report.Items)

	second := p.Assets()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].LastModified, second[i].LastModified)
		assert.Equal(t, report.Generation, second[i].PurgeGeneration)
	}
}

func TestScanEveryRecordCarriesCurrentGeneration(t *testing.T) {
	t.Parallel()

	p, dir := newScanProject(t, map[string]string{"a.obj": "a", "b.png": "b"})
	require.NoError(t, os.Remove(filepath.Join(dir, "a.obj")))
	testutil.WriteFile(t, dir, "c.stl", []byte("c"))

	report, err := p.Scan()
	require.NoError(t, err)
	for _, rec := range p.Assets() {
		assert.Equal(t, report.Generation, rec.PurgeGeneration, rec.SourcePath)
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rec.SourcePath)))
		require.NoError(t, err)
		assert.True(t, p.Library().Exists(library.AssetName(rec.ID, rec.SourcePath)))
	}
	assert.Equal(t, 2, p.Len())
}

func TestScanSkipsLibraryAndUnsupported(t *testing.T) {
	t.Parallel()

	p, dir := newScanProject(t, map[string]string{
		"Library/stray.png": "stray",
		"readme.md":         "docs",
		"noext":             "x",
		"ok.bmp":            "bmp",
	})
	assert.Equal(t, 1, p.Len())
	_, ok := p.Asset("ok.bmp")
	assert.True(t, ok)
	_, err := os.Stat(filepath.Join(dir, "Library", "stray.png"))
	require.NoError(t, err)
}

func TestScanSkipsSymlinks(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	outside := t.TempDir()
	testutil.WriteFile(t, outside, "secret.obj", []byte("secret"))
	p, dir := newScanProject(t, nil)
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.obj"), filepath.Join(dir, "link.obj")))

	report, err := p.Scan()
	require.NoError(t, err)
	assert.Empty(t, report.Added())
	assert.Zero(t, p.Len())
}

func TestScanRestoresMissingLibraryCopy(t *testing.T) {
	t.Parallel()

	p, _ := newScanProject(t, map[string]string{"a.obj": "a"})
	rec, ok := p.Asset("a.obj")
	require.True(t, ok)
	require.NoError(t, os.Remove(p.LibraryPath(rec)))

	report, err := p.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.obj"}, report.Updated())
	assert.FileExists(t, p.LibraryPath(rec))
}

func TestScanIdentityFollowsPath(t *testing.T) {
	t.Parallel()

	p, dir := newScanProject(t, map[string]string{"a.obj": "a"})
	rec, ok := p.Asset("a.obj")
	require.True(t, ok)

	require.NoError(t, os.Rename(filepath.Join(dir, "a.obj"), filepath.Join(dir, "b.obj")))
	report, err := p.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.obj"}, report.Added())
	assert.Equal(t, []string{"a.obj"}, report.Removed())

	moved, ok := p.Asset("b.obj")
	require.True(t, ok)
	assert.NotEqual(t, rec.ID, moved.ID)
}

func TestScanKeepsRecordsUnderUnreadableDirectory(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	p, dir := newScanProject(t, map[string]string{"locked/a.obj": "a"})
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	report, err := p.Scan()
	require.NoError(t, err)
	assert.Empty(t, report.Removed())
	require.Len(t, report.Items.Failed(), 1)
	assert.Equal(t, outcome.Skipped, report.Items.Failed()[0].Action)
	_, ok := p.Asset("locked/a.obj")
	assert.True(t, ok)
}

func TestPreviews(t *testing.T) {
	t.Parallel()

	p, _ := newScanProject(t, map[string]string{"a.png": "a", "b.jpg": "b", "m.obj": "m"})
	rec, ok := p.Asset("b.jpg")
	require.True(t, ok)

	r := &testutil.Renderer{
		Fail: map[string]bool{p.LibraryPath(rec): true},
		Err:  errors.New("bad image"),
	}
	slots := p.Previews(Texture, r)
	require.Len(t, slots, 2)
	assert.Nil(t, slots[rec.ID])
	a, ok := p.Asset("a.png")
	require.True(t, ok)
	require.NotNil(t, slots[a.ID])

	// Rendered slots are not rendered again.
	p.Previews(Texture, r)
	assert.Len(t, r.Handles(), 1)

	models := p.Previews(Model, r)
	require.Len(t, models, 1)
	assert.Len(t, r.Handles(), 2)

	p.RemovePreview(Texture, a.ID)
	assert.True(t, r.Handles()[0].Released())

	require.NoError(t, p.Close())
	assert.True(t, r.Handles()[1].Released())
}

func TestUpdatedAssetPreviewIsReleased(t *testing.T) {
	t.Parallel()

	p, dir := newScanProject(t, map[string]string{"a.png": "a"})
	r := &testutil.Renderer{}
	p.Previews(Texture, r)
	require.Len(t, r.Handles(), 1)

	testutil.Touch(t, dir, "a.png", time.Now().Add(time.Hour))
	_, err := p.Scan()
	require.NoError(t, err)
	assert.True(t, r.Handles()[0].Released())

	p.Previews(Texture, r)
	assert.Len(t, r.Handles(), 2)
}

func TestScanSkipsNamesTheDatabaseCannotStore(t *testing.T) {
	t.Parallel()
	if runtime.GOOS != "linux" {
		t.Skip("filesystem may reject non-UTF-8 names")
	}

	dir := t.TempDir()
	name := "caf\xe9.obj"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("v"), 0o644))
	testutil.WriteFile(t, dir, "ok.obj", []byte("ok"))

	p, err := Create("demo", dir, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	failed := p.LastScan().Items.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, name, failed[0].Name)
	assert.Equal(t, outcome.Skipped, failed[0].Action)
	require.ErrorIs(t, failed[0].Err, ErrInvalidPath)
	assert.Equal(t, 1, p.Len())

	require.NoError(t, p.Persist(""))
	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 1, reopened.Len())
}

// blockLibraryCopy puts a non-empty directory where rec's Library copy
// belongs, so writing or removing the copy fails even for root.
func blockLibraryCopy(t *testing.T, p *Project, rec AssetRecord) string {
	t.Helper()
	path := p.LibraryPath(rec)
	require.NoError(t, os.Remove(path))
	testutil.WriteFile(t, path, "keep", []byte("x"))
	return path
}

func TestScanRetriesFailedLibraryCopy(t *testing.T) {
	t.Parallel()

	p, dir := newScanProject(t, map[string]string{"a.obj": "a"})
	rec, ok := p.Asset("a.obj")
	require.True(t, ok)
	blocked := blockLibraryCopy(t, p, rec)

	testutil.WriteFile(t, dir, "a.obj", []byte("a2"))
	testutil.Touch(t, dir, "a.obj", time.Now().Add(time.Hour))
	report, err := p.Scan()
	require.NoError(t, err)
	assert.Empty(t, report.Updated())
	failed := report.Items.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "a.obj", failed[0].Name)
	assert.Equal(t, outcome.Updated, failed[0].Action)

	stale, ok := p.Asset("a.obj")
	require.True(t, ok)
	assert.Equal(t, rec.ID, stale.ID)
	assert.Equal(t, rec.LastModified, stale.LastModified)

	require.NoError(t, os.RemoveAll(blocked))
	report, err = p.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.obj"}, report.Updated())
	data, err := os.ReadFile(p.LibraryPath(rec))
	require.NoError(t, err)
	assert.Equal(t, "a2", string(data))
}

func TestScanKeepsRecordWhenFirstCopyFails(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	p, dir := newScanProject(t, map[string]string{"a.obj": "a"})
	lib := p.Library().Dir()
	require.NoError(t, os.Chmod(lib, 0o555))
	t.Cleanup(func() { _ = os.Chmod(lib, 0o755) })

	testutil.WriteFile(t, dir, "b.obj", []byte("b"))
	report, err := p.Scan()
	require.NoError(t, err)
	assert.Empty(t, report.Added())
	failed := report.Items.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, outcome.Added, failed[0].Action)

	rec, ok := p.Asset("b.obj")
	require.True(t, ok)
	assert.Zero(t, rec.LastModified)

	require.NoError(t, os.Chmod(lib, 0o755))
	report, err = p.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.obj"}, report.Updated())
	retried, ok := p.Asset("b.obj")
	require.True(t, ok)
	assert.Equal(t, rec.ID, retried.ID)
	assert.FileExists(t, p.LibraryPath(retried))
}

func TestSweepContinuesPastFailedRemoval(t *testing.T) {
	t.Parallel()

	p, dir := newScanProject(t, map[string]string{"a.obj": "a", "b.obj": "b"})
	a, ok := p.Asset("a.obj")
	require.True(t, ok)
	b, ok := p.Asset("b.obj")
	require.True(t, ok)
	blockLibraryCopy(t, p, a)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.obj")))
	require.NoError(t, os.Remove(filepath.Join(dir, "b.obj")))
	report, err := p.Scan()
	require.NoError(t, err)

	assert.Equal(t, []string{"b.obj"}, report.Removed())
	failed := report.Items.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "a.obj", failed[0].Name)
	assert.Equal(t, outcome.Removed, failed[0].Action)

	assert.Zero(t, p.Len())
	_, ok = p.GetAsset(a.ID)
	assert.False(t, ok)
	assert.NoFileExists(t, p.LibraryPath(b))
}
