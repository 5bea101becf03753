package recipe

import (
	"fmt"
	"path"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/types"
)

// Volume puts the apt-cacher-ng cache on a dedicated volume. A new empty
// volume is created unless apt-cacher-ng.restore.lineage names a backup to
// restore from; either way the cache directory ends up as a symlink into the
// mounted volume.
func Volume(n *attributes.Node) (*types.Plan, error) {
	cb, err := cookbook(n)
	if err != nil {
		return nil, err
	}

	plan := &types.Plan{Recipe: VolumeRecipe}
	nickname := cb.Device.Nickname
	mountPoint := cb.Device.MountPoint

	if cb.Restore.Lineage == "" {
		timeout := cb.Device.DetachTimeout
		plan.Add(&types.Resource{
			Type:   types.ResourceExecute,
			Action: types.ActionRun,
			Name:   fmt.Sprintf("set decommission timeout to %d", timeout),
			Execute: &types.ExecuteSpec{
				Command: fmt.Sprintf("rs_config --set decommission_timeout %d", timeout),
				NotIf:   fmt.Sprintf("[ `rs_config --get decommission_timeout` -eq %d ]", timeout),
			},
		})

		plan.Add(&types.Resource{
			Type:   types.ResourceVolume,
			Action: types.ActionCreate,
			Name:   nickname,
			Volume: &types.VolumeSpec{
				Nickname: nickname,
				Size:     cb.Device.VolumeSize,
				Options:  volumeOptions(cb.Device.IOPS),
			},
		})
		plan.Add(&types.Resource{
			Type:   types.ResourceVolume,
			Action: types.ActionAttach,
			Name:   nickname,
			Volume: &types.VolumeSpec{
				Nickname: nickname,
				Size:     cb.Device.VolumeSize,
				Options:  volumeOptions(cb.Device.IOPS),
			},
		})

		fs := &types.FilesystemSpec{
			Nickname:    nickname,
			FSType:      cb.Device.Filesystem,
			MkfsOptions: "-F",
			MountPoint:  mountPoint,
		}
		for _, action := range []types.Action{types.ActionCreate, types.ActionEnable, types.ActionMount} {
			spec := *fs
			plan.Add(&types.Resource{
				Type:       types.ResourceFilesystem,
				Action:     action,
				Name:       nickname,
				Filesystem: &spec,
			})
		}
	} else {
		plan.Add(&types.Resource{
			Type:   types.ResourceBackup,
			Action: types.ActionRestore,
			Name:   nickname,
			Backup: &types.BackupSpec{
				Nickname:  nickname,
				Lineage:   cb.Restore.Lineage,
				Timestamp: cb.Restore.Timestamp,
				Size:      cb.Device.VolumeSize,
				Options:   volumeOptions(cb.Device.IOPS),
			},
		})

		// The device is only known for sure once the restore attached the
		// volume, so Device stays empty and is resolved from the node when
		// mounting. The name reflects what the node knew at compile time.
		name := restoredDevice(n, nickname)
		for _, action := range []types.Action{types.ActionMount, types.ActionEnable} {
			plan.Add(&types.Resource{
				Type:   types.ResourceMount,
				Action: action,
				Name:   name,
				Filesystem: &types.FilesystemSpec{
					Nickname:   nickname,
					FSType:     cb.Device.Filesystem,
					MountPoint: mountPoint,
				},
			})
		}
	}

	relocateCacheDir(plan, cb.Cache.Dir, path.Join(mountPoint, attributes.ServiceName))
	return plan, nil
}

// restoredDevice is the best compile-time guess at the restored volume's
// device: the attached volume, then the first device of the last restore,
// then the nickname itself.
func restoredDevice(n *attributes.Node, nickname string) string {
	if dev := n.String(attributes.VolumeDeviceKey(nickname)); dev != "" {
		return dev
	}
	if devices := n.StringSlice(attributes.BackupDevicesKey(nickname)); len(devices) > 0 && devices[0] != "" {
		return devices[0]
	}
	return nickname
}

// relocateCacheDir replaces the cache directory with a symlink to target
func relocateCacheDir(plan *types.Plan, cacheDir, target string) {
	plan.Add(&types.Resource{
		Type:      types.ResourceDirectory,
		Action:    types.ActionCreate,
		Name:      target,
		Directory: &types.DirectorySpec{Mode: 0o755},
	})
	plan.Add(&types.Resource{
		Type:      types.ResourceDirectory,
		Action:    types.ActionDelete,
		Name:      cacheDir,
		Directory: &types.DirectorySpec{Recursive: true},
	})
	plan.Add(&types.Resource{
		Type:   types.ResourceLink,
		Action: types.ActionCreate,
		Name:   cacheDir,
		Link:   &types.LinkSpec{To: target},
	})
}
