package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cuemby/acng/pkg/types"
)

// Link manages symbolic links named by the resource
type Link struct{}

// Actions returns create
func (Link) Actions() []types.Action {
	return []types.Action{types.ActionCreate}
}

// Apply converges a link resource. A link pointing elsewhere is replaced;
// anything else at the path is an error.
func (Link) Apply(_ context.Context, pc *Context, res *types.Resource) (Outcome, error) {
	if res.Action != types.ActionCreate {
		return Outcome{}, unsupported(res)
	}
	if res.Link == nil || res.Link.To == "" {
		return Outcome{}, fmt.Errorf("link %s has no target", res.Name)
	}

	path, to := res.Name, res.Link.To
	info, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		if pc.DryRun {
			return updated("would link to %s", to), nil
		}
		if err := os.Symlink(to, path); err != nil {
			return Outcome{}, fmt.Errorf("failed to create link %s: %w", path, err)
		}
		return updated("linked to %s", to), nil
	case err != nil:
		return Outcome{}, fmt.Errorf("failed to stat %s: %w", path, err)
	case info.Mode()&os.ModeSymlink == 0:
		// in dry-run an earlier resource would have removed it
		if pc.DryRun {
			return updated("would replace %s with a link to %s", path, to), nil
		}
		return Outcome{}, fmt.Errorf("%s exists and is not a symlink", path)
	}

	current, err := os.Readlink(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read link %s: %w", path, err)
	}
	if current == to {
		return upToDate("already linked to %s", to), nil
	}

	if pc.DryRun {
		return updated("would relink from %s to %s", current, to), nil
	}
	if err := os.Remove(path); err != nil {
		return Outcome{}, fmt.Errorf("failed to remove link %s: %w", path, err)
	}
	if err := os.Symlink(to, path); err != nil {
		return Outcome{}, fmt.Errorf("failed to create link %s: %w", path, err)
	}
	return updated("relinked from %s to %s", current, to), nil
}
