/*
Package types defines the core data structures shared by acng packages.

The model is deliberately flat: a recipe produces a Plan, a Plan is an ordered
list of Resources, and the convergence engine records a Run with one
ResourceResult per resource. Volumes and Snapshots describe the persistent
storage managed along the way.

# Resources

Every Resource has a type, an action and a name, mirroring the familiar
"type[name]" notation:

	rightscale_volume[data_storage]      create  size=10 options={}
	rightscale_volume[data_storage]      attach
	filesystem[data_storage]             create  fstype=ext4 mkfs_options=-F mount=/mnt/storage
	directory[/mnt/storage/apt-cacher-ng] create
	directory[/var/cache/apt-cacher-ng]  delete  recursive=true
	link[/var/cache/apt-cacher-ng]       create  to=/mnt/storage/apt-cacher-ng

Type-specific parameters live in optional spec structs (VolumeSpec,
BackupSpec, FilesystemSpec, ...). Only the spec matching the resource type is
set.

# Optional values

Two parameters carry meaning in their absence:

  - VolumeSpec.Options / BackupSpec.Options is an empty, non-nil map when no
    iops were requested.
  - BackupSpec.Timestamp is a nil pointer when the restore should use the
    latest snapshot of the lineage.

Both serialize accordingly: `options: {}` and `timestamp: null`.

# Runs

A Run is stored after every convergence (see package storage) and can be
listed with `acng history`.
*/
package types
