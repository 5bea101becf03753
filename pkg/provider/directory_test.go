package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/acng/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirResource(action types.Action, path string, recursive bool) *types.Resource {
	return &types.Resource{
		Type:      types.ResourceDirectory,
		Action:    action,
		Name:      path,
		Directory: &types.DirectorySpec{Recursive: recursive, Mode: 0o755},
	}
}

func TestDirectoryCreate(t *testing.T) {
	pc, _ := newContext(false)
	path := filepath.Join(t.TempDir(), "apt-cacher-ng")

	out := apply(t, Directory{}, pc, dirResource(types.ActionCreate, path, false))
	assert.True(t, out.Updated)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	out = apply(t, Directory{}, pc, dirResource(types.ActionCreate, path, false))
	assert.False(t, out.Updated)
}

func TestDirectoryCreateFixesMode(t *testing.T) {
	pc, _ := newContext(false)
	path := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.Mkdir(path, 0o700))
	require.NoError(t, os.Chmod(path, 0o700))

	out := apply(t, Directory{}, pc, dirResource(types.ActionCreate, path, false))
	assert.True(t, out.Updated)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestDirectoryCreateMissingParent(t *testing.T) {
	pc, _ := newContext(false)
	path := filepath.Join(t.TempDir(), "a", "b")

	_, err := Directory{}.Apply(context.Background(), pc, dirResource(types.ActionCreate, path, false))
	assert.Error(t, err)

	out := apply(t, Directory{}, pc, dirResource(types.ActionCreate, path, true))
	assert.True(t, out.Updated)
	assert.DirExists(t, path)
}

func TestDirectoryCreateOverFile(t *testing.T) {
	pc, _ := newContext(false)
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Directory{}.Apply(context.Background(), pc, dirResource(types.ActionCreate, path, false))
	assert.Error(t, err)
}

func TestDirectoryDelete(t *testing.T) {
	pc, _ := newContext(false)
	path := filepath.Join(t.TempDir(), "apt-cacher-ng")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "debrep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "debrep", "Release"), []byte("x"), 0o644))

	out := apply(t, Directory{}, pc, dirResource(types.ActionDelete, path, true))
	assert.True(t, out.Updated)
	assert.NoDirExists(t, path)

	out = apply(t, Directory{}, pc, dirResource(types.ActionDelete, path, true))
	assert.False(t, out.Updated)
}

func TestDirectoryDeleteNonRecursive(t *testing.T) {
	pc, _ := newContext(false)
	path := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(path, "f"), nil, 0o644))

	_, err := Directory{}.Apply(context.Background(), pc, dirResource(types.ActionDelete, path, false))
	assert.Error(t, err)
}

func TestDirectoryDeleteLeavesSymlink(t *testing.T) {
	pc, _ := newContext(false)
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Mkdir(target, 0o755))
	require.NoError(t, os.Symlink(target, link))

	out := apply(t, Directory{}, pc, dirResource(types.ActionDelete, link, true))
	assert.False(t, out.Updated)
	assert.DirExists(t, target)

	_, err := os.Lstat(link)
	assert.NoError(t, err)
}

func TestDirectoryDryRun(t *testing.T) {
	pc, _ := newContext(true)
	dir := t.TempDir()
	missing := filepath.Join(dir, "new")
	existing := filepath.Join(dir, "old")
	require.NoError(t, os.Mkdir(existing, 0o755))

	out := apply(t, Directory{}, pc, dirResource(types.ActionCreate, missing, false))
	assert.True(t, out.Updated)
	assert.NoDirExists(t, missing)

	out = apply(t, Directory{}, pc, dirResource(types.ActionDelete, existing, true))
	assert.True(t, out.Updated)
	assert.DirExists(t, existing)
}
