package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/backup"
	"github.com/cuemby/acng/pkg/storage"
	"github.com/cuemby/acng/pkg/system/systemtest"
	"github.com/cuemby/acng/pkg/types"
	"github.com/cuemby/acng/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type volumeFixture struct {
	store   *storage.BoltStore
	manager *volume.Manager
	driver  *volume.LocalDriver
	catalog *backup.Catalog
}

func newVolumeFixture(t *testing.T, runner *systemtest.FakeRunner) *volumeFixture {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	driver, err := volume.NewLocalDriver(t.TempDir(), runner)
	require.NoError(t, err)

	return &volumeFixture{
		store:   store,
		manager: volume.NewManager(driver),
		driver:  driver,
		catalog: backup.NewCatalog(t.TempDir()),
	}
}

func (f *volumeFixture) imagePath(nickname string) string {
	return f.driver.GetPath(&types.Volume{Nickname: nickname})
}

func volumeResource(action types.Action) *types.Resource {
	return &types.Resource{
		Type:   types.ResourceVolume,
		Action: action,
		Name:   "data_storage",
		Volume: &types.VolumeSpec{Nickname: "data_storage", Size: 1, Options: map[string]int{"iops": 100}},
	}
}

func TestVolumeCreateAndAttach(t *testing.T) {
	pc, runner := newContext(false)
	f := newVolumeFixture(t, runner)
	p := Volume{Store: f.store, Volumes: f.manager}
	runner.Outputs["losetup --find --show "+f.imagePath("data_storage")] = "/dev/loop7"

	out := apply(t, p, pc, volumeResource(types.ActionCreate))
	assert.True(t, out.Updated)

	vol, err := f.store.GetVolume("data_storage")
	require.NoError(t, err)
	assert.Equal(t, 1, vol.Size)
	assert.Equal(t, map[string]int{"iops": 100}, vol.Options)
	assert.NotEmpty(t, vol.ID)
	assert.FileExists(t, vol.ImagePath)

	out = apply(t, p, pc, volumeResource(types.ActionCreate))
	assert.False(t, out.Updated)

	out = apply(t, p, pc, volumeResource(types.ActionAttach))
	assert.True(t, out.Updated)
	assert.Equal(t, "/dev/loop7", pc.Node.String(attributes.VolumeDeviceKey("data_storage")))

	vol, err = f.store.GetVolume("data_storage")
	require.NoError(t, err)
	assert.Equal(t, "/dev/loop7", vol.Device)
	assert.False(t, vol.AttachedAt.IsZero())
}

func TestVolumeAttachReportsExistingBinding(t *testing.T) {
	pc, runner := newContext(false)
	f := newVolumeFixture(t, runner)
	p := Volume{Store: f.store, Volumes: f.manager}
	image := f.imagePath("data_storage")
	runner.Outputs["losetup -j "+image] = "/dev/loop2: []: (" + image + ")"

	apply(t, p, pc, volumeResource(types.ActionCreate))
	out := apply(t, p, pc, volumeResource(types.ActionAttach))
	assert.False(t, out.Updated)
	assert.Equal(t, "/dev/loop2", pc.Node.String(attributes.VolumeDeviceKey("data_storage")))
}

func TestVolumeAttachBeforeCreate(t *testing.T) {
	pc, runner := newContext(false)
	f := newVolumeFixture(t, runner)

	_, err := Volume{Store: f.store, Volumes: f.manager}.Apply(context.Background(), pc, volumeResource(types.ActionAttach))
	assert.Error(t, err)
}

func TestVolumeDryRun(t *testing.T) {
	pc, runner := newContext(true)
	f := newVolumeFixture(t, runner)
	p := Volume{Store: f.store, Volumes: f.manager}

	out := apply(t, p, pc, volumeResource(types.ActionCreate))
	assert.True(t, out.Updated)
	out = apply(t, p, pc, volumeResource(types.ActionAttach))
	assert.True(t, out.Updated)

	vols, err := f.store.ListVolumes()
	require.NoError(t, err)
	assert.Empty(t, vols)
	assert.Empty(t, runner.Commands)

	_, err = os.Stat(f.imagePath("data_storage"))
	assert.True(t, os.IsNotExist(err))
}

func TestVolumeImageLivesUnderBasePath(t *testing.T) {
	_, runner := newContext(false)
	f := newVolumeFixture(t, runner)

	assert.Equal(t, "data_storage.img", filepath.Base(f.imagePath("data_storage")))
}
