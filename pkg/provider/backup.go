package provider

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/backup"
	"github.com/cuemby/acng/pkg/metrics"
	"github.com/cuemby/acng/pkg/storage"
	"github.com/cuemby/acng/pkg/types"
	"github.com/cuemby/acng/pkg/volume"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Backup restores volumes from, and saves them to, a backup catalog
type Backup struct {
	Store   storage.VolumeStore
	Volumes *volume.Manager
	Catalog *backup.Catalog

	// Now defaults to time.Now
	Now func() time.Time
}

// Actions returns restore, create and cleanup
func (Backup) Actions() []types.Action {
	return []types.Action{types.ActionRestore, types.ActionCreate, types.ActionCleanup}
}

// Apply converges a rightscale_backup resource
func (b Backup) Apply(ctx context.Context, pc *Context, res *types.Resource) (Outcome, error) {
	spec := res.Backup
	if spec == nil || spec.Lineage == "" {
		return Outcome{}, fmt.Errorf("%s has no backup lineage", res.Key())
	}
	if spec.Nickname == "" {
		s := *spec
		s.Nickname = res.Name
		spec = &s
	}

	switch res.Action {
	case types.ActionRestore:
		return b.restore(ctx, pc, spec)
	case types.ActionCreate:
		return b.create(pc, spec)
	case types.ActionCleanup:
		return b.cleanup(pc, spec)
	default:
		return Outcome{}, unsupported(res)
	}
}

// restore provisions the volume from the lineage unless it already exists,
// then makes sure it is attached.
func (b Backup) restore(ctx context.Context, pc *Context, spec *types.BackupSpec) (Outcome, error) {
	vol, err := lookupVolume(b.Store, spec.Nickname)
	if err != nil {
		return Outcome{}, err
	}

	if vol != nil {
		if pc.DryRun {
			return upToDate("volume %s exists", spec.Nickname), nil
		}
		attached, err := attachVolume(ctx, pc, b.Store, b.Volumes, vol)
		if err != nil {
			return Outcome{}, err
		}
		if attached {
			return updated("attached existing volume %s on %s", spec.Nickname, vol.Device), nil
		}
		return upToDate("volume %s exists", spec.Nickname), nil
	}

	snap, err := b.Catalog.Find(spec.Lineage, spec.Timestamp)
	if err != nil {
		return Outcome{}, err
	}
	if pc.DryRun {
		return updated("would restore %s from snapshot %d", spec.Nickname, snap.Timestamp), nil
	}

	vol = &types.Volume{
		ID:        uuid.New().String(),
		Nickname:  spec.Nickname,
		Size:      spec.Size,
		Options:   maps.Clone(spec.Options),
		CreatedAt: b.now(),
	}
	if err := b.Volumes.RestoreVolume(ctx, vol, snap); err != nil {
		return Outcome{}, fmt.Errorf("failed to restore volume %s: %w", spec.Nickname, err)
	}
	if _, err := attachVolume(ctx, pc, b.Store, b.Volumes, vol); err != nil {
		return Outcome{}, err
	}
	pc.Node.Override(attributes.BackupDevicesKey(spec.Nickname), []string{vol.Device})
	return updated("restored %s from %s snapshot %d on %s", spec.Nickname, spec.Lineage, snap.Timestamp, vol.Device), nil
}

func (b Backup) create(pc *Context, spec *types.BackupSpec) (Outcome, error) {
	vol, err := lookupVolume(b.Store, spec.Nickname)
	if err != nil {
		return Outcome{}, err
	}
	if vol == nil {
		return Outcome{}, fmt.Errorf("volume %s has not been created", spec.Nickname)
	}
	if pc.DryRun {
		return updated("would snapshot %s into %s", spec.Nickname, spec.Lineage), nil
	}

	source, err := b.Volumes.ImagePath(vol)
	if err != nil {
		return Outcome{}, err
	}
	snap, err := b.Catalog.Create(spec.Lineage, source, b.now())
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to back up volume %s: %w", spec.Nickname, err)
	}
	b.recordSnapshots(spec.Lineage)
	return updated("saved %s snapshot %d (%s)", spec.Lineage, snap.Timestamp, humanize.IBytes(uint64(snap.Size))), nil
}

func (b Backup) cleanup(pc *Context, spec *types.BackupSpec) (Outcome, error) {
	if spec.KeepLast < 1 {
		return Outcome{}, fmt.Errorf("failed to clean up %s: keep_last must be at least 1, got %d", spec.Lineage, spec.KeepLast)
	}
	if pc.DryRun {
		snaps, err := b.Catalog.List(spec.Lineage)
		if err != nil {
			return Outcome{}, err
		}
		if stale := len(snaps) - spec.KeepLast; stale > 0 {
			return updated("would remove %d snapshots", stale), nil
		}
		return upToDate("nothing to clean up"), nil
	}

	removed, err := b.Catalog.Cleanup(spec.Lineage, spec.KeepLast)
	if err != nil {
		return Outcome{}, err
	}
	b.recordSnapshots(spec.Lineage)
	if len(removed) == 0 {
		return upToDate("nothing to clean up"), nil
	}
	return updated("removed %d snapshots", len(removed)), nil
}

func (b Backup) recordSnapshots(lineage string) {
	if snaps, err := b.Catalog.List(lineage); err == nil {
		metrics.BackupSnapshots.WithLabelValues(lineage).Set(float64(len(snaps)))
	}
}

func (b Backup) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
