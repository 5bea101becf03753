package main

import (
	"fmt"
	"time"

	"github.com/cuemby/acng/pkg/backup"
	"github.com/cuemby/acng/pkg/storage"
	"github.com/cuemby/acng/pkg/system"
	"github.com/cuemby/acng/pkg/volume"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// Volume commands
var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Inspect and remove volumes",
}

var volumeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List volumes known to this host",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")

		store, err := storage.NewBoltStore(dataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		volumes, err := store.ListVolumes()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(volumes) == 0 {
			fmt.Fprintln(out, "No volumes found")
			return nil
		}

		fmt.Fprintf(out, "%-16s %-10s %-12s %-10s %s\n", "NICKNAME", "SIZE", "DEVICE", "LINEAGE", "CREATED")
		for _, v := range volumes {
			device := v.Device
			if device == "" {
				device = "-"
			}
			lineage := v.Lineage
			if lineage == "" {
				lineage = "-"
			}
			fmt.Fprintf(out, "%-16s %-10s %-12s %-10s %s\n",
				v.Nickname, humanize.IBytes(uint64(v.Size)<<30), device, lineage, humanize.Time(v.CreatedAt))
		}
		return nil
	},
}

var volumeDeleteCmd = &cobra.Command{
	Use:   "delete NICKNAME",
	Short: "Detach a volume and remove its backing image",
	Long: `Detach a volume and remove its backing image.

The volume must not be mounted. Snapshots taken from it are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		volumesDir, _ := cmd.Flags().GetString("volumes-dir")

		store, err := storage.NewBoltStore(dataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		vol, err := store.GetVolume(args[0])
		if err != nil {
			return err
		}

		driver, err := volume.NewLocalDriver(volumesDir, system.NewExecRunner())
		if err != nil {
			return err
		}
		if err := volume.NewManager(driver).DeleteVolume(cmd.Context(), vol); err != nil {
			return fmt.Errorf("failed to delete volume %s: %w", vol.Nickname, err)
		}
		if err := store.DeleteVolume(vol.Nickname); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted volume %s\n", vol.Nickname)
		return nil
	},
}

// Backup commands
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect backup lineages",
}

var backupListCmd = &cobra.Command{
	Use:   "list LINEAGE",
	Short: "List the snapshots of a lineage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("backup-root")

		snaps, err := backup.NewCatalog(root).List(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(snaps) == 0 {
			fmt.Fprintf(out, "No snapshots in lineage %s\n", args[0])
			return nil
		}

		fmt.Fprintf(out, "%-12s %-26s %s\n", "TIMESTAMP", "TAKEN", "SIZE")
		for _, s := range snaps {
			taken := time.Unix(s.Timestamp, 0).UTC().Format(time.RFC3339)
			fmt.Fprintf(out, "%-12d %-26s %s\n", s.Timestamp, taken, humanize.IBytes(uint64(s.Size)))
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent convergence runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := storage.NewBoltStore(dataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}

		fmt.Fprintf(out, "%-36s %-14s %-8s %-8s %-10s %s\n", "RUN", "STARTED", "RESULT", "UPDATED", "DURATION", "RECIPE")
		for _, r := range runs {
			result := "ok"
			if r.Error != "" {
				result = "failed"
			}
			if r.DryRun {
				result += "*"
			}
			fmt.Fprintf(out, "%-36s %-14s %-8s %-8d %-10s %s\n",
				r.ID, humanize.Time(r.StartedAt), result, r.Updated(),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), r.Recipe)
		}
		return nil
	},
}

func init() {
	volumeCmd.AddCommand(volumeListCmd)
	volumeCmd.AddCommand(volumeDeleteCmd)
	backupCmd.AddCommand(backupListCmd)

	volumeDeleteCmd.Flags().String("volumes-dir", volume.DefaultVolumesPath, "Directory for local volume images")
	backupListCmd.Flags().String("backup-root", backup.DefaultRoot, "Directory holding backup lineages")
	historyCmd.Flags().Int("limit", 10, "Number of runs to show (0 for all)")
}
