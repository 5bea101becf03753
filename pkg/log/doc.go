/*
Package log provides structured logging for acng using zerolog.

The package keeps a single global zerolog.Logger that every other package
derives child loggers from. Init is called once by the CLI before any work
starts; until then Logger writes JSON to stderr.

# Configuration

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false,     // console output for interactive runs
		Output:     os.Stderr,
		File:       "/var/log/acng/acng.log",
		MaxSizeMB:  50,
		MaxBackups: 5,
	})

When File is set, JSON records are also written to a size-rotated file
(lumberjack) regardless of the console format, so converge runs launched by
cron or cloud-init leave a machine-readable trail.

# Context loggers

  - WithComponent: component=<name> ("converge", "provider.volume", ...)
  - WithRunID: run_id=<uuid> for every record of a convergence
  - WithResource: resource=<type[name]> action=<action>

Example:

	runLog := log.WithRunID(log.WithComponent("converge"), run.ID)
	resLog := log.WithResource(runLog, res.Key(), string(res.Action))
	resLog.Info().Dur("duration", d).Msg("resource updated")
*/
package log
