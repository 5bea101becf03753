package converge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/log"
	"github.com/cuemby/acng/pkg/metrics"
	"github.com/cuemby/acng/pkg/provider"
	"github.com/cuemby/acng/pkg/storage"
	"github.com/cuemby/acng/pkg/system"
	"github.com/cuemby/acng/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine applies plans to the host
type Engine struct {
	registry *provider.Registry
	runner   system.Runner
	runs     storage.RunStore
	logger   zerolog.Logger
}

// NewEngine creates an engine. runs may be nil to skip recording history.
func NewEngine(registry *provider.Registry, runner system.Runner, runs storage.RunStore) *Engine {
	return &Engine{
		registry: registry,
		runner:   runner,
		runs:     runs,
		logger:   log.WithComponent("converge"),
	}
}

// Options controls a single convergence
type Options struct {
	DryRun bool
}

// Converge applies plan resource by resource. It stops at the first failed
// resource; delayed notifications queued by updated resources run once each
// after the last resource. The returned Run is complete even on error.
func (e *Engine) Converge(ctx context.Context, node *attributes.Node, plan *types.Plan, opts Options) (*types.Run, error) {
	run := &types.Run{
		ID:        uuid.New().String(),
		Recipe:    plan.Recipe,
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}

	runLog := log.WithRunID(e.logger, run.ID).With().Str("recipe", plan.Recipe).Logger()
	runLog.Info().Int("resources", len(plan.Resources)).Bool("dry_run", opts.DryRun).Msg("Starting convergence")

	timer := metrics.NewTimer()
	err := e.apply(ctx, node, plan, run, opts, runLog)
	timer.ObserveDuration(metrics.RunDuration)

	run.FinishedAt = time.Now()
	result := "success"
	if err != nil {
		run.Error = err.Error()
		result = "failure"
	}
	metrics.RunsTotal.WithLabelValues(plan.Recipe, result).Inc()
	metrics.LastRunTimestamp.Set(float64(run.FinishedAt.Unix()))

	if e.runs != nil {
		if serr := e.runs.SaveRun(run); serr != nil {
			runLog.Warn().Err(serr).Msg("Failed to record run")
		}
	}

	if err != nil {
		runLog.Error().Err(err).Dur("duration", timer.Duration()).Msg("Convergence failed")
		return run, err
	}
	runLog.Info().
		Int("updated", run.Updated()).
		Int("total", len(run.Resources)).
		Dur("duration", timer.Duration()).
		Msg("Convergence complete")
	return run, nil
}

func (e *Engine) apply(ctx context.Context, node *attributes.Node, plan *types.Plan, run *types.Run, opts Options, runLog zerolog.Logger) error {
	if err := e.registry.Check(plan); err != nil {
		return err
	}

	pc := &provider.Context{
		Node:   node,
		Runner: e.runner,
		DryRun: opts.DryRun,
	}

	var delayed []types.Notification
	queued := make(map[string]bool)

	for _, res := range plan.Resources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if res.Action == types.ActionNothing {
			continue
		}

		result, err := e.applyResource(ctx, pc, res, res.Action, runLog)
		run.Resources = append(run.Resources, result)
		if err != nil {
			return fmt.Errorf("%s (%s): %w", res.Key(), res.Action, err)
		}

		if result.Status == types.StatusUpdated || result.Status == types.StatusWhyRun {
			for _, n := range res.Notifies {
				id := n.Resource + "#" + string(n.Action)
				if !queued[id] {
					queued[id] = true
					delayed = append(delayed, n)
				}
			}
		}
	}

	for _, n := range delayed {
		target := plan.Lookup(n.Resource)
		if target == nil {
			return fmt.Errorf("notification target %s not found", n.Resource)
		}
		runLog.Debug().Str("resource", n.Resource).Str("action", string(n.Action)).Msg("Running delayed notification")

		result, err := e.applyResource(ctx, pc, target, n.Action, runLog)
		run.Resources = append(run.Resources, result)
		if err != nil {
			return fmt.Errorf("%s (%s): %w", target.Key(), n.Action, err)
		}
	}

	return nil
}

func (e *Engine) applyResource(ctx context.Context, pc *provider.Context, res *types.Resource, action types.Action, runLog zerolog.Logger) (types.ResourceResult, error) {
	key := res.Key()
	resLog := log.WithResource(runLog, key, string(action))
	pc.Logger = resLog

	p, err := e.registry.Get(res.Type)
	if err != nil {
		return types.ResourceResult{Key: key, Action: action, Status: types.StatusFailed, Message: err.Error()}, err
	}

	target := res
	if action != res.Action {
		r := *res
		r.Action = action
		target = &r
	}

	timer := metrics.NewTimer()
	outcome, err := p.Apply(ctx, pc, target)
	duration := timer.Duration()
	timer.ObserveDurationVec(metrics.ResourceDuration, string(res.Type))

	result := types.ResourceResult{
		Key:      key,
		Action:   action,
		Message:  outcome.Message,
		Duration: duration,
	}
	switch {
	case err != nil:
		result.Status = types.StatusFailed
		result.Message = err.Error()
	case outcome.Skipped:
		result.Status = types.StatusSkipped
	case outcome.Updated && pc.DryRun:
		result.Status = types.StatusWhyRun
	case outcome.Updated:
		result.Status = types.StatusUpdated
	default:
		result.Status = types.StatusUpToDate
	}
	metrics.ResourcesTotal.WithLabelValues(string(res.Type), string(action), string(result.Status)).Inc()

	event := resLog.Info()
	if err != nil {
		event = resLog.Error().Err(err)
	} else if result.Status == types.StatusUpToDate || result.Status == types.StatusSkipped {
		event = resLog.Debug()
	}
	event.Str("status", string(result.Status)).Dur("duration", duration).Msg(result.Message)

	return result, err
}

// ExitCode maps a convergence error to a process exit status
func ExitCode(err error) int {
	var exitErr *system.ExitError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 130
	case errors.As(err, &exitErr):
		return 2
	default:
		return 1
	}
}

// Summary renders a one-line description of a run
func Summary(run *types.Run) string {
	changed, verb := run.Updated(), "updated"
	if run.DryRun {
		verb = "would be updated"
		for _, r := range run.Resources {
			if r.Status == types.StatusWhyRun {
				changed++
			}
		}
	}
	status := "converged"
	if run.Error != "" {
		status = "failed"
	}
	return fmt.Sprintf("%s %s: %d/%d resources %s in %s",
		run.Recipe, status, changed, len(run.Resources), verb,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
}
