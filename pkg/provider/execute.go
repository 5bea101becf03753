package provider

import (
	"context"
	"fmt"

	"github.com/cuemby/acng/pkg/system"
	"github.com/cuemby/acng/pkg/types"
)

// Execute runs commands guarded by not_if / only_if scripts
type Execute struct{}

// Actions returns run
func (Execute) Actions() []types.Action {
	return []types.Action{types.ActionRun}
}

// Apply runs the command unless a guard says otherwise. Guards are evaluated
// in dry-run too.
func (Execute) Apply(ctx context.Context, pc *Context, res *types.Resource) (Outcome, error) {
	if res.Action != types.ActionRun {
		return Outcome{}, unsupported(res)
	}
	spec := res.Execute
	if spec == nil || spec.Command == "" {
		return Outcome{}, fmt.Errorf("execute %s has no command", res.Name)
	}

	if spec.NotIf != "" {
		ok, err := pc.Runner.Shell(ctx, spec.NotIf)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to evaluate not_if: %w", err)
		}
		if ok {
			return Outcome{Skipped: true, Message: "skipped due to not_if"}, nil
		}
	}
	if spec.OnlyIf != "" {
		ok, err := pc.Runner.Shell(ctx, spec.OnlyIf)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to evaluate only_if: %w", err)
		}
		if !ok {
			return Outcome{Skipped: true, Message: "skipped due to only_if"}, nil
		}
	}

	if pc.DryRun {
		return updated("would run %s", spec.Command), nil
	}

	out, err := system.RunLine(ctx, pc.Runner, spec.Command)
	if err != nil {
		return Outcome{}, err
	}
	if out != "" {
		pc.Logger.Debug().Str("output", out).Msg("command output")
	}
	return updated("ran %s", spec.Command), nil
}
