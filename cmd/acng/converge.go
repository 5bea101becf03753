package main

import (
	"fmt"

	"github.com/cuemby/acng/pkg/backup"
	"github.com/cuemby/acng/pkg/converge"
	"github.com/cuemby/acng/pkg/metrics"
	"github.com/cuemby/acng/pkg/provider"
	"github.com/cuemby/acng/pkg/recipe"
	"github.com/cuemby/acng/pkg/storage"
	"github.com/cuemby/acng/pkg/system"
	"github.com/cuemby/acng/pkg/volume"
	"github.com/spf13/cobra"
)

var convergeCmd = &cobra.Command{
	Use:   "converge [RECIPE...]",
	Short: "Converge the host to the given recipes",
	Long: `Compile the run list into a plan and apply it.

Recipes may be given as "volume" or "apt-cacher-ng::volume". The run list
defaults to the volume recipe.

Examples:
  # Provision the cache volume and install the server
  acng converge -j /etc/acng/node.yaml volume default

  # Restore the cache from the latest backup of a lineage
  acng converge --set apt-cacher-ng.restore.lineage=prod volume

  # Show what would change
  acng converge --dry-run`,
	RunE: runConverge,
}

func init() {
	convergeCmd.Flags().Bool("dry-run", false, "Report changes without making them")
	convergeCmd.Flags().String("volumes-dir", volume.DefaultVolumesPath, "Directory for local volume images")
	convergeCmd.Flags().String("backup-root", backup.DefaultRoot, "Directory holding backup lineages")
	convergeCmd.Flags().String("fstab", provider.DefaultFstab, "fstab file to register mounts in")
	convergeCmd.Flags().String("metrics-textfile", "", "Write Prometheus metrics to this file after the run")
}

func runList(args []string) []string {
	if len(args) == 0 {
		return []string{recipe.VolumeRecipe}
	}
	return args
}

func runConverge(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	volumesDir, _ := cmd.Flags().GetString("volumes-dir")
	backupRoot, _ := cmd.Flags().GetString("backup-root")
	fstab, _ := cmd.Flags().GetString("fstab")
	textfile, _ := cmd.Flags().GetString("metrics-textfile")

	node, err := loadNode(cmd)
	if err != nil {
		return err
	}
	plan, err := recipe.Compile(node, runList(args)...)
	if err != nil {
		return err
	}

	store, err := storage.NewBoltStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := system.NewExecRunner()
	driver, err := volume.NewLocalDriver(volumesDir, runner)
	if err != nil {
		return err
	}

	registry := provider.NewDefaultRegistry(provider.Deps{
		Store:     store,
		Volumes:   volume.NewManager(driver),
		Catalog:   backup.NewCatalog(backupRoot),
		Templates: recipe.TemplateFS(),
		Fstab:     fstab,
	})
	engine := converge.NewEngine(registry, runner, store)

	run, err := engine.Converge(cmd.Context(), node, plan, converge.Options{DryRun: dryRun})

	if textfile != "" {
		if merr := metrics.WriteTextfile(textfile); merr != nil && err == nil {
			err = merr
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), converge.Summary(run))
	return err
}
