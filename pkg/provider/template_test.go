package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cuemby/acng/pkg/recipe"
	"github.com/cuemby/acng/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proxyTemplate(path string) *types.Resource {
	return &types.Resource{
		Type:   types.ResourceTemplate,
		Action: types.ActionCreate,
		Name:   path,
		Template: &types.TemplateSpec{
			Source:    "01proxy.tmpl",
			Mode:      0o644,
			Variables: map[string]string{"Server": "10.0.2.15", "Port": "3142"},
		},
	}
}

func TestTemplateWritesOnlyOnChange(t *testing.T) {
	pc, _ := newContext(false)
	p := Template{FS: recipe.TemplateFS()}
	path := filepath.Join(t.TempDir(), "01proxy")

	out := apply(t, p, pc, proxyTemplate(path))
	assert.True(t, out.Updated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `Acquire::http::Proxy "http://10.0.2.15:3142/";`)

	before, err := os.Stat(path)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	out = apply(t, p, pc, proxyTemplate(path))
	assert.False(t, out.Updated)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestTemplateRewritesChangedContent(t *testing.T) {
	pc, _ := newContext(false)
	fsys := fstest.MapFS{"motd.tmpl": {Data: []byte("hello {{ .Name }}\n")}}
	path := filepath.Join(t.TempDir(), "motd")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o600))

	res := &types.Resource{
		Type: types.ResourceTemplate, Action: types.ActionCreate, Name: path,
		Template: &types.TemplateSpec{Source: "motd.tmpl", Variables: map[string]string{"Name": "cache"}},
	}
	out := apply(t, Template{FS: fsys}, pc, res)
	assert.True(t, out.Updated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello cache\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestTemplateDryRun(t *testing.T) {
	pc, _ := newContext(true)
	path := filepath.Join(t.TempDir(), "01proxy")

	out := apply(t, Template{FS: recipe.TemplateFS()}, pc, proxyTemplate(path))
	assert.True(t, out.Updated)
	assert.NoFileExists(t, path)
}

func TestTemplateMissingSource(t *testing.T) {
	pc, _ := newContext(false)
	res := proxyTemplate(filepath.Join(t.TempDir(), "x"))
	res.Template.Source = "missing.tmpl"

	_, err := Template{FS: fstest.MapFS{}}.Apply(context.Background(), pc, res)
	assert.Error(t, err)
}
