package recipe

import (
	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/types"
)

// Backup snapshots the data volume into apt-cacher-ng.backup.lineage and
// prunes old snapshots
func Backup(n *attributes.Node) (*types.Plan, error) {
	cb, err := cookbook(n)
	if err != nil {
		return nil, err
	}
	if cb.Backup.Lineage == "" {
		return nil, &attributes.FieldError{Key: attributes.KeyBackupLineage, Reason: "required by the backup recipe"}
	}

	nickname := cb.Device.Nickname
	plan := &types.Plan{Recipe: BackupRecipe}

	plan.Add(&types.Resource{
		Type:    types.ResourceExecute,
		Action:  types.ActionRun,
		Name:    "sync filesystems",
		Execute: &types.ExecuteSpec{Command: "sync"},
	})
	plan.Add(&types.Resource{
		Type:   types.ResourceBackup,
		Action: types.ActionCreate,
		Name:   nickname,
		Backup: &types.BackupSpec{
			Nickname: nickname,
			Lineage:  cb.Backup.Lineage,
			Size:     cb.Device.VolumeSize,
			Options:  volumeOptions(cb.Device.IOPS),
		},
	})
	plan.Add(&types.Resource{
		Type:   types.ResourceBackup,
		Action: types.ActionCleanup,
		Name:   nickname,
		Backup: &types.BackupSpec{
			Nickname: nickname,
			Lineage:  cb.Backup.Lineage,
			Size:     cb.Device.VolumeSize,
			Options:  volumeOptions(cb.Device.IOPS),
			KeepLast: cb.Backup.Keep.KeepLast,
		},
	})
	return plan, nil
}
