package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/converge"
	"github.com/cuemby/acng/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// DefaultDataDir holds the state database
const DefaultDataDir = "/var/lib/acng"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(converge.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "acng",
	Short: "acng - apt-cacher-ng host provisioning",
	Long: `acng converges a host into an apt-cacher-ng server or client.

The cache directory is placed on a dedicated block volume, either a new
empty one or one restored from a backup lineage, formatted, mounted and
linked into place. Node attributes come from YAML files (-j), ACNG_*
environment variables and --set overrides.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"acng version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Log in JSON instead of console format")
	flags.String("log-file", "", "Also write JSON logs to this file, rotated by size")
	flags.String("data-dir", DefaultDataDir, "Directory for the state database")
	flags.StringArrayP("attributes", "j", nil, "Node attribute file (YAML or JSON), may be repeated")
	flags.StringArray("set", nil, "Override an attribute, key=value, may be repeated")
	flags.Bool("no-detect", false, "Do not detect memory.total and cloud.private_ips from the host")

	// Add subcommands
	rootCmd.AddCommand(convergeCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(attributesCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(historyCmd)
}

func initLogging(cmd *cobra.Command, _ []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	jsonOutput, _ := cmd.Flags().GetBool("log-json")
	logFile, _ := cmd.Flags().GetString("log-file")

	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOutput,
		Output:     cmd.ErrOrStderr(),
		File:       logFile,
		MaxSizeMB:  50,
		MaxBackups: 5,
	})
	return nil
}

// loadNode assembles the node attributes from the persistent flags
func loadNode(cmd *cobra.Command) (*attributes.Node, error) {
	files, _ := cmd.Flags().GetStringArray("attributes")
	overrides, _ := cmd.Flags().GetStringArray("set")
	noDetect, _ := cmd.Flags().GetBool("no-detect")

	return attributes.Load(attributes.LoadOptions{
		Files:     files,
		Overrides: overrides,
		Detect:    !noDetect,
	})
}
