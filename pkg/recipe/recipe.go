package recipe

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/types"
)

// Recipe names, in cookbook::recipe form
const (
	DefaultRecipe = attributes.ServiceName + "::default"
	VolumeRecipe  = attributes.ServiceName + "::volume"
	ClientRecipe  = attributes.ServiceName + "::client"
	BackupRecipe  = attributes.ServiceName + "::backup"
)

// ErrUnknownRecipe is returned when a run list names an unregistered recipe
var ErrUnknownRecipe = errors.New("unknown recipe")

// Templates holds the file templates referenced by TemplateSpec.Source
//
//go:embed templates/*.tmpl
var Templates embed.FS

// Recipe turns node attributes into an ordered plan. Recipes only read the
// node; all host changes happen in the convergence engine.
type Recipe func(n *attributes.Node) (*types.Plan, error)

var registry = map[string]Recipe{
	DefaultRecipe: Default,
	VolumeRecipe:  Volume,
	ClientRecipe:  Client,
	BackupRecipe:  Backup,
}

// Names lists registered recipes in a stable order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves "volume" or "apt-cacher-ng::volume"
func Lookup(name string) (Recipe, string, error) {
	full := strings.TrimSpace(name)
	if !strings.Contains(full, "::") {
		full = attributes.ServiceName + "::" + full
	}
	r, ok := registry[full]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownRecipe, name)
	}
	return r, full, nil
}

// Compile expands a run list into one plan, preserving recipe order
func Compile(n *attributes.Node, runList ...string) (*types.Plan, error) {
	if len(runList) == 0 {
		return nil, fmt.Errorf("run list is empty")
	}

	plan := &types.Plan{}
	names := make([]string, 0, len(runList))
	for _, name := range runList {
		r, full, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		part, err := r(n)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", full, err)
		}
		plan.Resources = append(plan.Resources, part.Resources...)
		names = append(names, full)
	}
	plan.Recipe = strings.Join(names, ",")
	return plan, nil
}

func cookbook(n *attributes.Node) (*attributes.Cookbook, error) {
	cb, err := n.Cookbook()
	if err != nil {
		return nil, err
	}
	if err := cb.Validate(); err != nil {
		return nil, err
	}
	return cb, nil
}

// volumeOptions is empty, never nil, unless iops were requested
func volumeOptions(iops *int) map[string]int {
	options := map[string]int{}
	if iops != nil {
		options["iops"] = *iops
	}
	return options
}

// TemplateFS returns the templates rooted so that TemplateSpec.Source names
// resolve directly
func TemplateFS() fs.FS {
	sub, err := fs.Sub(Templates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}
