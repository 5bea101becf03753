/*
Package converge applies a compiled plan to the host.

An Engine walks the plan once, in order, on a single goroutine. For every
resource it looks up the provider registered for the resource type and asks
it to apply the resource's action:

	plan := recipe.Compile(node, "volume", "default")
	        |
	registry.Check(plan)          every type/action has a provider
	        |
	for each resource ----------> provider.Apply
	        |                          updated / up-to-date / skipped / failed
	        |   updated resources queue their notifications
	        v
	delayed notifications         each target+action once, in queue order
	        |
	RunStore.SaveRun, metrics

The first failing resource stops the run; later resources and queued
notifications are not applied. The Run returned by Converge is complete in
both cases and is also recorded in the state store.

# Dry run

With Options.DryRun the providers only inspect the host. Resources that
would change are reported as "would-update", and still trigger their
notifications so the whole run is previewed.

# Exit codes

ExitCode maps a convergence error for the CLI: 1 for configuration and
provider errors, 2 when a host command exited non-zero, 130 when the run was
interrupted.
*/
package converge
