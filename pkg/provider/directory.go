package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cuemby/acng/pkg/types"
)

const defaultDirMode = 0o755

// Directory manages directories named by the resource
type Directory struct{}

// Actions returns create and delete
func (Directory) Actions() []types.Action {
	return []types.Action{types.ActionCreate, types.ActionDelete}
}

// Apply converges a directory resource
func (d Directory) Apply(_ context.Context, pc *Context, res *types.Resource) (Outcome, error) {
	spec := res.Directory
	if spec == nil {
		spec = &types.DirectorySpec{}
	}

	switch res.Action {
	case types.ActionCreate:
		return d.create(pc, res.Name, spec)
	case types.ActionDelete:
		return d.delete(pc, res.Name, spec)
	default:
		return Outcome{}, unsupported(res)
	}
}

func (Directory) create(pc *Context, path string, spec *types.DirectorySpec) (Outcome, error) {
	mode := os.FileMode(spec.Mode)
	if mode == 0 {
		mode = defaultDirMode
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return Outcome{}, fmt.Errorf("%s exists and is not a directory", path)
	case err == nil && info.Mode().Perm() == mode:
		return upToDate("directory exists"), nil
	case err == nil:
		if pc.DryRun {
			return updated("would change mode to %04o", mode), nil
		}
		if err := os.Chmod(path, mode); err != nil {
			return Outcome{}, fmt.Errorf("failed to chmod %s: %w", path, err)
		}
		return updated("changed mode to %04o", mode), nil
	case !os.IsNotExist(err):
		return Outcome{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if pc.DryRun {
		return updated("would create directory"), nil
	}

	mkdir := os.Mkdir
	if spec.Recursive {
		mkdir = os.MkdirAll
	}
	if err := mkdir(path, mode); err != nil {
		return Outcome{}, fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	// Mkdir is subject to the umask
	if err := os.Chmod(path, mode); err != nil {
		return Outcome{}, fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	return updated("created directory"), nil
}

// delete removes a real directory. A symlink at path is left alone so that
// relocating a directory into a link converges on the second run.
func (Directory) delete(pc *Context, path string, spec *types.DirectorySpec) (Outcome, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return upToDate("directory absent"), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return upToDate("path is a symlink"), nil
	}
	if !info.IsDir() {
		return Outcome{}, fmt.Errorf("%s exists and is not a directory", path)
	}

	if pc.DryRun {
		return updated("would delete directory"), nil
	}

	remove := os.Remove
	if spec.Recursive {
		remove = os.RemoveAll
	}
	if err := remove(path); err != nil {
		return Outcome{}, fmt.Errorf("failed to delete directory %s: %w", path, err)
	}
	return updated("deleted directory"), nil
}
