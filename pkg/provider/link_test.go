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

func linkResource(path, to string) *types.Resource {
	return &types.Resource{
		Type:   types.ResourceLink,
		Action: types.ActionCreate,
		Name:   path,
		Link:   &types.LinkSpec{To: to},
	}
}

func TestLinkCreateIsIdempotent(t *testing.T) {
	pc, _ := newContext(false)
	dir := t.TempDir()
	path := filepath.Join(dir, "apt-cacher-ng")
	target := filepath.Join(dir, "storage", "apt-cacher-ng")

	out := apply(t, Link{}, pc, linkResource(path, target))
	assert.True(t, out.Updated)

	got, err := os.Readlink(path)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	out = apply(t, Link{}, pc, linkResource(path, target))
	assert.False(t, out.Updated)
}

func TestLinkReplacesWrongTarget(t *testing.T) {
	pc, _ := newContext(false)
	dir := t.TempDir()
	path := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("/old", path))

	out := apply(t, Link{}, pc, linkResource(path, "/new"))
	assert.True(t, out.Updated)

	got, err := os.Readlink(path)
	require.NoError(t, err)
	assert.Equal(t, "/new", got)
}

func TestLinkRefusesDirectory(t *testing.T) {
	pc, _ := newContext(false)
	path := t.TempDir()

	_, err := Link{}.Apply(context.Background(), pc, linkResource(path, "/somewhere"))
	assert.Error(t, err)
}

func TestLinkDryRun(t *testing.T) {
	pc, _ := newContext(true)
	path := filepath.Join(t.TempDir(), "link")

	out := apply(t, Link{}, pc, linkResource(path, "/target"))
	assert.True(t, out.Updated)

	_, err := os.Lstat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLinkWithoutTarget(t *testing.T) {
	pc, _ := newContext(false)

	_, err := Link{}.Apply(context.Background(), pc, linkResource("/tmp/x", ""))
	assert.Error(t, err)
}
