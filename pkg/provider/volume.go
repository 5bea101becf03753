package provider

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/metrics"
	"github.com/cuemby/acng/pkg/storage"
	"github.com/cuemby/acng/pkg/types"
	"github.com/cuemby/acng/pkg/volume"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Volume creates and attaches block volumes
type Volume struct {
	Store   storage.VolumeStore
	Volumes *volume.Manager
}

// Actions returns create and attach
func (Volume) Actions() []types.Action {
	return []types.Action{types.ActionCreate, types.ActionAttach}
}

// Apply converges a rightscale_volume resource
func (v Volume) Apply(ctx context.Context, pc *Context, res *types.Resource) (Outcome, error) {
	spec := res.Volume
	if spec == nil {
		spec = &types.VolumeSpec{Nickname: res.Name}
	}
	nickname := spec.Nickname
	if nickname == "" {
		nickname = res.Name
	}

	switch res.Action {
	case types.ActionCreate:
		return v.create(ctx, pc, nickname, spec)
	case types.ActionAttach:
		return v.attach(ctx, pc, nickname)
	default:
		return Outcome{}, unsupported(res)
	}
}

func (v Volume) create(ctx context.Context, pc *Context, nickname string, spec *types.VolumeSpec) (Outcome, error) {
	existing, err := lookupVolume(v.Store, nickname)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil {
		return upToDate("volume %s exists", nickname), nil
	}

	size := humanize.IBytes(uint64(spec.Size) << 30)
	if pc.DryRun {
		return updated("would create %s volume", size), nil
	}

	vol := &types.Volume{
		ID:        uuid.New().String(),
		Nickname:  nickname,
		Size:      spec.Size,
		Options:   maps.Clone(spec.Options),
		CreatedAt: time.Now(),
	}
	if err := v.Volumes.CreateVolume(ctx, vol); err != nil {
		return Outcome{}, fmt.Errorf("failed to create volume %s: %w", nickname, err)
	}
	if err := saveVolume(v.Store, vol); err != nil {
		return Outcome{}, err
	}
	return updated("created %s volume", size), nil
}

func (v Volume) attach(ctx context.Context, pc *Context, nickname string) (Outcome, error) {
	vol, err := lookupVolume(v.Store, nickname)
	if err != nil {
		return Outcome{}, err
	}
	if vol == nil {
		if pc.DryRun {
			return updated("would attach volume %s", nickname), nil
		}
		return Outcome{}, fmt.Errorf("volume %s has not been created", nickname)
	}
	if pc.DryRun {
		if vol.Device != "" {
			pc.Node.Override(attributes.VolumeDeviceKey(nickname), vol.Device)
		}
		return upToDate("volume %s recorded on %s", nickname, vol.Device), nil
	}

	attached, err := attachVolume(ctx, pc, v.Store, v.Volumes, vol)
	if err != nil {
		return Outcome{}, err
	}
	if !attached {
		return upToDate("volume %s attached on %s", nickname, vol.Device), nil
	}
	return updated("attached volume %s on %s", nickname, vol.Device), nil
}

// attachVolume attaches vol, records the device on the node and persists it
func attachVolume(ctx context.Context, pc *Context, store storage.VolumeStore, mgr *volume.Manager, vol *types.Volume) (bool, error) {
	attached, err := mgr.AttachVolume(ctx, vol)
	if err != nil {
		return false, fmt.Errorf("failed to attach volume %s: %w", vol.Nickname, err)
	}
	if attached {
		vol.AttachedAt = time.Now()
	}
	if err := saveVolume(store, vol); err != nil {
		return false, err
	}
	pc.Node.Override(attributes.VolumeDeviceKey(vol.Nickname), vol.Device)
	return attached, nil
}

func lookupVolume(store storage.VolumeStore, nickname string) (*types.Volume, error) {
	vol, err := store.GetVolume(nickname)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load volume %s: %w", nickname, err)
	}
	return vol, nil
}

func saveVolume(store storage.VolumeStore, vol *types.Volume) error {
	if err := store.SaveVolume(vol); err != nil {
		return fmt.Errorf("failed to save volume %s: %w", vol.Nickname, err)
	}
	if vols, err := store.ListVolumes(); err == nil {
		metrics.VolumesTotal.Set(float64(len(vols)))
	}
	return nil
}
