package recipe

import (
	"fmt"
	"strconv"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/types"
)

const (
	// ServerConfigPath is the apt-cacher-ng daemon configuration
	ServerConfigPath = "/etc/apt-cacher-ng/acng.conf"

	// ClientConfigPath is the apt configuration pointing at the cache
	ClientConfigPath = "/etc/apt/apt.conf.d/01proxy"
)

var restartResource = types.ResourceKey(types.ResourceExecute, "restart "+attributes.ServiceName)

// Default installs and configures the apt-cacher-ng server
func Default(n *attributes.Node) (*types.Plan, error) {
	cb, err := cookbook(n)
	if err != nil {
		return nil, err
	}

	plan := &types.Plan{Recipe: DefaultRecipe}

	plan.Add(&types.Resource{
		Type:   types.ResourceExecute,
		Action: types.ActionRun,
		Name:   "install " + attributes.ServiceName,
		Execute: &types.ExecuteSpec{
			Command: "env DEBIAN_FRONTEND=noninteractive apt-get install -y " + attributes.ServiceName,
			NotIf:   fmt.Sprintf("dpkg -s %s >/dev/null 2>&1", attributes.ServiceName),
		},
	})

	variables := map[string]string{
		"Port":     strconv.Itoa(cb.Cache.Port),
		"CacheDir": cb.Cache.Dir,
	}
	if ips := n.StringSlice(attributes.KeyCloudPrivateIPs); len(ips) > 0 {
		variables["BindAddress"] = ips[0]
	}
	if cb.Cache.Server != "" {
		variables["Proxy"] = cb.Cache.Server
	}

	plan.Add(&types.Resource{
		Type:   types.ResourceTemplate,
		Action: types.ActionCreate,
		Name:   ServerConfigPath,
		Template: &types.TemplateSpec{
			Source:    "acng.conf.tmpl",
			Mode:      0o644,
			Variables: variables,
		},
		Notifies: []types.Notification{{Action: types.ActionRun, Resource: restartResource}},
	})

	plan.Add(&types.Resource{
		Type:   types.ResourceExecute,
		Action: types.ActionNothing,
		Name:   "restart " + attributes.ServiceName,
		Execute: &types.ExecuteSpec{
			Command: "service " + attributes.ServiceName + " restart",
		},
	})

	return plan, nil
}
