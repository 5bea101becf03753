package provider

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"github.com/cuemby/acng/pkg/types"
)

const defaultFileMode = 0o644

// Template renders files from a template filesystem
type Template struct {
	FS fs.FS
}

// Actions returns create
func (Template) Actions() []types.Action {
	return []types.Action{types.ActionCreate}
}

// Apply renders the template and writes it only when the content changed
func (t Template) Apply(_ context.Context, pc *Context, res *types.Resource) (Outcome, error) {
	if res.Action != types.ActionCreate {
		return Outcome{}, unsupported(res)
	}
	spec := res.Template
	if spec == nil || spec.Source == "" {
		return Outcome{}, fmt.Errorf("template %s has no source", res.Name)
	}

	tmpl, err := template.New(filepath.Base(spec.Source)).Option("missingkey=zero").ParseFS(t.FS, spec.Source)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to parse template %s: %w", spec.Source, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, spec.Variables); err != nil {
		return Outcome{}, fmt.Errorf("failed to render template %s: %w", spec.Source, err)
	}

	mode := os.FileMode(spec.Mode)
	if mode == 0 {
		mode = defaultFileMode
	}

	current, err := os.ReadFile(res.Name)
	if err != nil && !os.IsNotExist(err) {
		return Outcome{}, fmt.Errorf("failed to read %s: %w", res.Name, err)
	}
	if err == nil && bytes.Equal(current, buf.Bytes()) {
		return upToDate("content unchanged"), nil
	}

	if pc.DryRun {
		return updated("would render %s", spec.Source), nil
	}
	if err := writeFileAtomic(res.Name, buf.Bytes(), mode); err != nil {
		return Outcome{}, err
	}
	return updated("rendered %s", spec.Source), nil
}

// writeFileAtomic replaces path through a temporary file in the same directory
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(mode)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
