package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/system"
	"github.com/cuemby/acng/pkg/types"
	"github.com/rs/zerolog"
)

// ErrUnsupportedAction is returned for an action a provider does not implement
var ErrUnsupportedAction = errors.New("unsupported action")

// Context carries what providers need to converge a resource
type Context struct {
	Node   *attributes.Node
	Runner system.Runner
	DryRun bool
	Logger zerolog.Logger
}

// Outcome reports what a provider did to a resource
type Outcome struct {
	// Updated is true when the host changed, or would have in dry-run
	Updated bool

	// Skipped is true when a guard prevented the action
	Skipped bool

	Message string
}

func updated(format string, args ...interface{}) Outcome {
	return Outcome{Updated: true, Message: fmt.Sprintf(format, args...)}
}

func upToDate(format string, args ...interface{}) Outcome {
	return Outcome{Message: fmt.Sprintf(format, args...)}
}

// Provider converges resources of one type
type Provider interface {
	// Actions lists the actions Apply accepts, besides "nothing"
	Actions() []types.Action

	// Apply brings the host in line with res. In dry-run it only inspects
	// the host and reports what it would change.
	Apply(ctx context.Context, pc *Context, res *types.Resource) (Outcome, error)
}

// Registry maps resource types to providers
type Registry struct {
	providers map[types.ResourceType]Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[types.ResourceType]Provider)}
}

// Register adds or replaces the provider for a resource type
func (r *Registry) Register(t types.ResourceType, p Provider) {
	r.providers[t] = p
}

// Get returns the provider for a resource type
func (r *Registry) Get(t types.ResourceType) (Provider, error) {
	p, ok := r.providers[t]
	if !ok {
		return nil, fmt.Errorf("no provider for resource type %s", t)
	}
	return p, nil
}

// Check verifies that every resource in plan has a provider supporting its
// action, so a plan fails before it changes anything.
func (r *Registry) Check(plan *types.Plan) error {
	for _, res := range plan.Resources {
		if err := r.supports(res.Type, res.Action); err != nil {
			return fmt.Errorf("%s: %w", res.Key(), err)
		}
		for _, n := range res.Notifies {
			target := plan.Lookup(n.Resource)
			if target == nil {
				return fmt.Errorf("%s notifies unknown resource %s", res.Key(), n.Resource)
			}
			if err := r.supports(target.Type, n.Action); err != nil {
				return fmt.Errorf("%s: %w", n.Resource, err)
			}
		}
	}
	return nil
}

func (r *Registry) supports(t types.ResourceType, action types.Action) error {
	p, err := r.Get(t)
	if err != nil {
		return err
	}
	if action == types.ActionNothing || slices.Contains(p.Actions(), action) {
		return nil
	}
	return fmt.Errorf("%w %s for %s", ErrUnsupportedAction, action, t)
}

func unsupported(res *types.Resource) error {
	return fmt.Errorf("%w %s for %s", ErrUnsupportedAction, res.Action, res.Type)
}
