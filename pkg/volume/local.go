package volume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/acng/pkg/system"
	"github.com/cuemby/acng/pkg/types"
)

const (
	// DefaultVolumesPath is the base directory for local volume images
	DefaultVolumesPath = "/var/lib/acng/volumes"

	// LocalDriverName identifies the loop-device driver
	LocalDriverName = "local"

	gib = int64(1) << 30
)

// VolumeDriver defines the interface for volume drivers
type VolumeDriver interface {
	// Name returns the driver identifier stored in types.Volume.Driver
	Name() string

	// Create provisions a new, empty volume of volume.Size GiB
	Create(ctx context.Context, volume *types.Volume) error

	// Attach exposes the volume as a block device and sets volume.Device.
	// It reports false when the volume was already attached.
	Attach(ctx context.Context, volume *types.Volume) (bool, error)

	// Restore provisions the volume from a snapshot
	Restore(ctx context.Context, volume *types.Volume, snap *types.Snapshot) error

	// Delete detaches and removes a volume
	Delete(ctx context.Context, volume *types.Volume) error

	// GetPath returns the backing path for a volume
	GetPath(volume *types.Volume) string
}

// LocalDriver backs volumes with sparse image files attached as loop devices
type LocalDriver struct {
	basePath string
	runner   system.Runner
}

// NewLocalDriver creates a new local volume driver
func NewLocalDriver(basePath string, runner system.Runner) (*LocalDriver, error) {
	if basePath == "" {
		basePath = DefaultVolumesPath
	}

	// Ensure base directory exists
	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create volumes directory: %w", err)
	}

	return &LocalDriver{
		basePath: basePath,
		runner:   runner,
	}, nil
}

// Name returns "local"
func (d *LocalDriver) Name() string {
	return LocalDriverName
}

// Create allocates a sparse image file. An existing image is kept.
func (d *LocalDriver) Create(_ context.Context, volume *types.Volume) error {
	if volume.Size <= 0 {
		return fmt.Errorf("invalid volume size %d", volume.Size)
	}

	imagePath := d.GetPath(volume)
	f, err := os.OpenFile(imagePath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("failed to create volume image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat volume image: %w", err)
	}
	if want := int64(volume.Size) * gib; info.Size() < want {
		if err := f.Truncate(want); err != nil {
			return fmt.Errorf("failed to size volume image: %w", err)
		}
	}

	volume.ImagePath = imagePath
	volume.Driver = LocalDriverName
	return nil
}

// Attach binds the image to a free loop device, reusing an existing binding
func (d *LocalDriver) Attach(ctx context.Context, volume *types.Volume) (bool, error) {
	imagePath := d.GetPath(volume)
	if _, err := os.Stat(imagePath); err != nil {
		return false, fmt.Errorf("volume image does not exist: %s", imagePath)
	}

	out, err := d.runner.Run(ctx, "losetup", "-j", imagePath)
	if err != nil {
		return false, fmt.Errorf("failed to query loop devices: %w", err)
	}
	if dev := parseLosetupDevice(out); dev != "" {
		volume.Device = dev
		return false, nil
	}

	out, err = d.runner.Run(ctx, "losetup", "--find", "--show", imagePath)
	if err != nil {
		return false, fmt.Errorf("failed to attach volume: %w", err)
	}
	dev := strings.TrimSpace(out)
	if dev == "" {
		return false, errors.New("losetup returned no device")
	}

	volume.Device = dev
	return true, nil
}

// Restore copies the snapshot image into place and sizes it to at least
// volume.Size GiB.
func (d *LocalDriver) Restore(ctx context.Context, volume *types.Volume, snap *types.Snapshot) error {
	imagePath := d.GetPath(volume)
	if err := copyFile(snap.Path, imagePath); err != nil {
		return fmt.Errorf("failed to restore snapshot %s: %w", snap.Path, err)
	}

	volume.Lineage = snap.Lineage
	volume.RestoredFrom = snap.Path
	if volume.Size <= 0 {
		volume.Size = max(1, int((snap.Size+gib-1)/gib))
	}
	return d.Create(ctx, volume)
}

// Delete detaches the loop device, if any, and removes the image
func (d *LocalDriver) Delete(ctx context.Context, volume *types.Volume) error {
	if volume.Device != "" {
		if _, err := d.runner.Run(ctx, "losetup", "-d", volume.Device); err != nil {
			return fmt.Errorf("failed to detach %s: %w", volume.Device, err)
		}
		volume.Device = ""
	}

	imagePath := d.GetPath(volume)
	if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete volume image: %w", err)
	}
	return nil
}

// GetPath returns the image path for a volume
func (d *LocalDriver) GetPath(volume *types.Volume) string {
	return filepath.Join(d.basePath, volume.Nickname+".img")
}

// parseLosetupDevice extracts the device from `losetup -j` output such as
// "/dev/loop3: []: (/var/lib/acng/volumes/data_storage.img)".
func parseLosetupDevice(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	dev, _, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(dev)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".restore"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// Manager dispatches volume operations to drivers by name
type Manager struct {
	drivers map[string]VolumeDriver
}

// NewManager creates a manager serving the given drivers
func NewManager(drivers ...VolumeDriver) *Manager {
	m := &Manager{drivers: make(map[string]VolumeDriver, len(drivers))}
	for _, d := range drivers {
		m.drivers[d.Name()] = d
	}
	return m
}

// GetDriver returns the driver for a volume
func (m *Manager) GetDriver(driverName string) (VolumeDriver, error) {
	if driverName == "" {
		driverName = LocalDriverName
	}
	driver, ok := m.drivers[driverName]
	if !ok {
		return nil, fmt.Errorf("unknown volume driver: %s", driverName)
	}
	return driver, nil
}

// CreateVolume creates a volume using the appropriate driver
func (m *Manager) CreateVolume(ctx context.Context, volume *types.Volume) error {
	driver, err := m.GetDriver(volume.Driver)
	if err != nil {
		return err
	}
	volume.Driver = driver.Name()
	return driver.Create(ctx, volume)
}

// AttachVolume attaches a volume using the appropriate driver
func (m *Manager) AttachVolume(ctx context.Context, volume *types.Volume) (bool, error) {
	driver, err := m.GetDriver(volume.Driver)
	if err != nil {
		return false, err
	}
	return driver.Attach(ctx, volume)
}

// RestoreVolume restores a volume from a snapshot using the appropriate driver
func (m *Manager) RestoreVolume(ctx context.Context, volume *types.Volume, snap *types.Snapshot) error {
	driver, err := m.GetDriver(volume.Driver)
	if err != nil {
		return err
	}
	volume.Driver = driver.Name()
	return driver.Restore(ctx, volume, snap)
}

// DeleteVolume deletes a volume using the appropriate driver
func (m *Manager) DeleteVolume(ctx context.Context, volume *types.Volume) error {
	driver, err := m.GetDriver(volume.Driver)
	if err != nil {
		return err
	}
	return driver.Delete(ctx, volume)
}

// ImagePath returns the backing path of a volume
func (m *Manager) ImagePath(volume *types.Volume) (string, error) {
	driver, err := m.GetDriver(volume.Driver)
	if err != nil {
		return "", err
	}
	return driver.GetPath(volume), nil
}
