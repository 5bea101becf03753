package attributes

// ServiceName is the cookbook namespace and the name of the managed service
const ServiceName = "apt-cacher-ng"

// Attribute keys read by the recipes
const (
	KeyCachePort   = "apt-cacher-ng.cache.port"
	KeyCacheServer = "apt-cacher-ng.cache.server"
	KeyCacheDir    = "apt-cacher-ng.cache.dir"

	KeyDeviceNickname      = "apt-cacher-ng.device.nickname"
	KeyDeviceVolumeSize    = "apt-cacher-ng.device.volume_size"
	KeyDeviceIOPS          = "apt-cacher-ng.device.iops"
	KeyDeviceFilesystem    = "apt-cacher-ng.device.filesystem"
	KeyDeviceMountPoint    = "apt-cacher-ng.device.mount_point"
	KeyDeviceDetachTimeout = "apt-cacher-ng.device.detach_timeout"

	KeyRestoreLineage   = "apt-cacher-ng.restore.lineage"
	KeyRestoreTimestamp = "apt-cacher-ng.restore.timestamp"

	KeyBackupLineage  = "apt-cacher-ng.backup.lineage"
	KeyBackupKeepLast = "apt-cacher-ng.backup.keep.keep_last"

	KeyMemoryTotal       = "memory.total"
	KeyCloudPrivateIPs   = "cloud.private_ips"
	KeyDataStorageDevice = "rightscale_volume.data_storage.device"
)

// VolumeDeviceKey is where an attached volume publishes its block device
func VolumeDeviceKey(nickname string) string {
	return "rightscale_volume." + nickname + ".device"
}

// BackupDevicesKey lists the devices a restore of nickname produced
func BackupDevicesKey(nickname string) string {
	return "rightscale_backup." + nickname + ".devices"
}
