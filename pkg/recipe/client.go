package recipe

import (
	"strconv"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/types"
)

// Client points apt on this host at the cache server
func Client(n *attributes.Node) (*types.Plan, error) {
	cb, err := cookbook(n)
	if err != nil {
		return nil, err
	}
	if cb.Cache.Server == "" {
		return nil, &attributes.FieldError{Key: attributes.KeyCacheServer, Reason: "required by the client recipe"}
	}

	plan := &types.Plan{Recipe: ClientRecipe}
	plan.Add(&types.Resource{
		Type:   types.ResourceTemplate,
		Action: types.ActionCreate,
		Name:   ClientConfigPath,
		Template: &types.TemplateSpec{
			Source: "01proxy.tmpl",
			Mode:   0o644,
			Variables: map[string]string{
				"Server": cb.Cache.Server,
				"Port":   strconv.Itoa(cb.Cache.Port),
			},
		},
	})
	return plan, nil
}
