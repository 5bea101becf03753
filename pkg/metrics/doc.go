/*
Package metrics defines the Prometheus metrics recorded by acng.

acng is a one-shot command rather than a daemon, so nothing is scraped over
HTTP. Instead every convergence updates the default registry and, when asked
to, dumps it in the node_exporter textfile format:

	acng converge --metrics-textfile /var/lib/node_exporter/textfile/acng.prom

# Metrics

	acng_converge_runs_total{recipe,result}        counter
	acng_converge_duration_seconds                 histogram
	acng_converge_last_run_timestamp_seconds       gauge
	acng_resources_total{type,action,status}       counter
	acng_resource_duration_seconds{type}           histogram
	acng_volumes_total                             gauge
	acng_backup_snapshots{lineage}                 gauge

All metrics are registered in init and are safe for concurrent use.

# Timing

	timer := metrics.NewTimer()
	outcome, err := p.Apply(ctx, pc, res)
	timer.ObserveDurationVec(metrics.ResourceDuration, string(res.Type))
*/
package metrics
