/*
Package volume provisions the block volumes that hold the apt-cacher-ng cache.

A VolumeDriver turns a types.Volume into a block device. The only driver
shipped is LocalDriver, which backs each volume with a sparse image file
under /var/lib/acng/volumes and attaches it as a loop device:

	/var/lib/acng/volumes/data_storage.img  ->  losetup --find --show  ->  /dev/loop3

Sizes are whole GiB. Requested iops are recorded on the volume but cannot be
enforced by a loop device.

# Operations

  - Create allocates the image; an existing image is kept and only grown
  - Attach reuses an existing loop binding (losetup -j) before allocating one
  - Restore copies a backup snapshot into place (see package backup)
  - Delete detaches the loop device and removes the image

Commands go through system.Runner so they can be recorded in tests.

# Manager

Manager dispatches by types.Volume.Driver, defaulting to "local":

	manager := volume.NewManager(localDriver)
	if err := manager.CreateVolume(ctx, vol); err != nil {
		return err
	}
	attached, err := manager.AttachVolume(ctx, vol)
*/
package volume
