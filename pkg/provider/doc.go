/*
Package provider implements the resource types a plan is made of.

Each Provider converges one resource type and is idempotent: applying the
same resource twice changes the host at most once. Providers inspect the host
first and, when Context.DryRun is set, stop there and report what they would
have done.

	rightscale_volume   create, attach       volume.Manager + storage.VolumeStore
	rightscale_backup   restore, create,     backup.Catalog + volume.Manager
	                    cleanup
	filesystem          create, enable,      blkid, mkfs, fstab, mount
	                    mount
	mount               mount, enable        as filesystem
	directory           create, delete
	link                create
	execute             run                  not_if / only_if via /bin/sh -c
	template            create               text/template, written on change

Volume attach and backup restore record the device under
rightscale_volume.<nickname>.device on the node. Filesystem and mount
resources that name a nickname instead of a device read it from there when
they are applied, so a plan can be compiled before any volume exists.
*/
package provider
