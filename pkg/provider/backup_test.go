package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/backup"
	"github.com/cuemby/acng/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backupResource(action types.Action, timestamp *int64) *types.Resource {
	return &types.Resource{
		Type:   types.ResourceBackup,
		Action: action,
		Name:   "data_storage",
		Backup: &types.BackupSpec{
			Nickname:  "data_storage",
			Lineage:   "testing",
			Timestamp: timestamp,
			Size:      1,
			Options:   map[string]int{},
			KeepLast:  2,
		},
	}
}

func writeSnapshot(t *testing.T, c *backup.Catalog, ts int64, data string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src.img")
	require.NoError(t, os.WriteFile(src, []byte(data), 0o600))
	_, err := c.Create("testing", src, time.Unix(ts, 0))
	require.NoError(t, err)
}

func readPrefix(t *testing.T, path string, n int) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	buf := make([]byte, n)
	_, err = f.Read(buf)
	require.NoError(t, err)
	return string(buf)
}

func TestBackupRestoreLatest(t *testing.T) {
	pc, runner := newContext(false)
	f := newVolumeFixture(t, runner)
	writeSnapshot(t, f.catalog, 100, "old")
	writeSnapshot(t, f.catalog, 200, "new")
	runner.Outputs["losetup --find --show "+f.imagePath("data_storage")] = "/dev/loop4"
	p := Backup{Store: f.store, Volumes: f.manager, Catalog: f.catalog}

	out := apply(t, p, pc, backupResource(types.ActionRestore, nil))
	assert.True(t, out.Updated)
	assert.Equal(t, "/dev/loop4", pc.Node.String(attributes.VolumeDeviceKey("data_storage")))
	assert.Equal(t, []string{"/dev/loop4"}, pc.Node.StringSlice(attributes.BackupDevicesKey("data_storage")))

	vol, err := f.store.GetVolume("data_storage")
	require.NoError(t, err)
	assert.Equal(t, "testing", vol.Lineage)
	assert.Equal(t, "new", readPrefix(t, vol.ImagePath, 3))
}

func TestBackupRestoreAtTimestamp(t *testing.T) {
	pc, runner := newContext(false)
	f := newVolumeFixture(t, runner)
	writeSnapshot(t, f.catalog, 100, "old")
	writeSnapshot(t, f.catalog, 200, "new")
	p := Backup{Store: f.store, Volumes: f.manager, Catalog: f.catalog}
	runner.Outputs["losetup --find --show "+f.imagePath("data_storage")] = "/dev/loop4"

	ts := int64(150)
	apply(t, p, pc, backupResource(types.ActionRestore, &ts))

	vol, err := f.store.GetVolume("data_storage")
	require.NoError(t, err)
	assert.Equal(t, "old", readPrefix(t, vol.ImagePath, 3))
}

func TestBackupRestoreExistingVolume(t *testing.T) {
	pc, runner := newContext(false)
	f := newVolumeFixture(t, runner)
	writeSnapshot(t, f.catalog, 100, "old")
	image := f.imagePath("data_storage")
	runner.Outputs["losetup --find --show "+image] = "/dev/loop4"
	p := Backup{Store: f.store, Volumes: f.manager, Catalog: f.catalog}

	apply(t, p, pc, backupResource(types.ActionRestore, nil))

	// Second run: the loop device is still bound
	runner.Outputs["losetup -j "+image] = "/dev/loop4: []: (" + image + ")"
	pc2, _ := newContext(false)
	pc2.Runner = runner
	out := apply(t, p, pc2, backupResource(types.ActionRestore, nil))
	assert.False(t, out.Updated)
	assert.Equal(t, "/dev/loop4", pc2.Node.String(attributes.VolumeDeviceKey("data_storage")))
}

func TestBackupRestoreWithoutSnapshots(t *testing.T) {
	pc, runner := newContext(false)
	f := newVolumeFixture(t, runner)
	p := Backup{Store: f.store, Volumes: f.manager, Catalog: f.catalog}

	_, err := p.Apply(context.Background(), pc, backupResource(types.ActionRestore, nil))
	assert.True(t, errors.Is(err, backup.ErrNoBackup))
}

func TestBackupRestoreDryRun(t *testing.T) {
	pc, runner := newContext(true)
	f := newVolumeFixture(t, runner)
	writeSnapshot(t, f.catalog, 100, "old")
	p := Backup{Store: f.store, Volumes: f.manager, Catalog: f.catalog}

	out := apply(t, p, pc, backupResource(types.ActionRestore, nil))
	assert.True(t, out.Updated)

	vols, err := f.store.ListVolumes()
	require.NoError(t, err)
	assert.Empty(t, vols)
}

func TestBackupCreateAndCleanup(t *testing.T) {
	pc, runner := newContext(false)
	f := newVolumeFixture(t, runner)
	clock := time.Unix(1000, 0)
	p := Backup{
		Store: f.store, Volumes: f.manager, Catalog: f.catalog,
		Now: func() time.Time { return clock },
	}
	apply(t, Volume{Store: f.store, Volumes: f.manager}, pc, volumeResource(types.ActionCreate))
	// keep the snapshots small
	require.NoError(t, os.WriteFile(f.imagePath("data_storage"), []byte("cache"), 0o600))

	for i := 0; i < 3; i++ {
		out := apply(t, p, pc, backupResource(types.ActionCreate, nil))
		assert.True(t, out.Updated)
		clock = clock.Add(time.Minute)
	}

	snaps, err := f.catalog.List("testing")
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	out := apply(t, p, pc, backupResource(types.ActionCleanup, nil))
	assert.True(t, out.Updated)

	snaps, err = f.catalog.List("testing")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(1060), snaps[0].Timestamp)

	out = apply(t, p, pc, backupResource(types.ActionCleanup, nil))
	assert.False(t, out.Updated)
}

func TestBackupCleanupRejectsKeepNothing(t *testing.T) {
	for _, dryRun := range []bool{false, true} {
		pc, runner := newContext(dryRun)
		f := newVolumeFixture(t, runner)
		writeSnapshot(t, f.catalog, 100, "old")
		p := Backup{Store: f.store, Volumes: f.manager, Catalog: f.catalog}

		res := backupResource(types.ActionCleanup, nil)
		res.Backup.KeepLast = 0
		_, err := p.Apply(context.Background(), pc, res)
		assert.Error(t, err, "dry-run=%v", dryRun)

		snaps, err := f.catalog.List("testing")
		require.NoError(t, err)
		assert.Len(t, snaps, 1)
	}
}

func TestBackupCreateWithoutVolume(t *testing.T) {
	pc, runner := newContext(false)
	f := newVolumeFixture(t, runner)
	p := Backup{Store: f.store, Volumes: f.manager, Catalog: f.catalog}

	_, err := p.Apply(context.Background(), pc, backupResource(types.ActionCreate, nil))
	assert.Error(t, err)
}

func TestBackupRequiresLineage(t *testing.T) {
	pc, _ := newContext(false)
	res := backupResource(types.ActionRestore, nil)
	res.Backup.Lineage = ""

	_, err := Backup{}.Apply(context.Background(), pc, res)
	assert.Error(t, err)
}
