package provider

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cuemby/acng/pkg/attributes"
	"github.com/cuemby/acng/pkg/system"
	"github.com/cuemby/acng/pkg/types"
	"github.com/kballard/go-shellquote"
)

// DefaultFstab is the fstab edited by the enable action
const DefaultFstab = "/etc/fstab"

// Filesystem formats, registers and mounts filesystems on block devices.
// The same provider serves the mount resource type.
type Filesystem struct {
	// Fstab defaults to /etc/fstab
	Fstab string

	// Mounted defaults to system.Mounted
	Mounted func(path string) (bool, error)

	// MountSource defaults to system.MountSource
	MountSource func(path string) (string, error)
}

// Actions returns create, enable and mount
func (Filesystem) Actions() []types.Action {
	return []types.Action{types.ActionCreate, types.ActionEnable, types.ActionMount}
}

// Apply converges a filesystem resource
func (f Filesystem) Apply(ctx context.Context, pc *Context, res *types.Resource) (Outcome, error) {
	spec := res.Filesystem
	if spec == nil {
		return Outcome{}, fmt.Errorf("%s has no filesystem parameters", res.Key())
	}

	device, err := resolveDevice(pc, spec)
	if err != nil {
		if pc.DryRun {
			return updated("would %s once %s is attached", res.Action, spec.Nickname), nil
		}
		return Outcome{}, err
	}

	switch res.Action {
	case types.ActionCreate:
		return f.create(ctx, pc, device, spec)
	case types.ActionEnable:
		return f.enable(pc, device, spec)
	case types.ActionMount:
		return f.mount(ctx, pc, device, spec)
	default:
		return Outcome{}, unsupported(res)
	}
}

// resolveDevice returns the explicit device, or the device recorded for the
// nickname by a volume attach or backup restore earlier in the run.
func resolveDevice(pc *Context, spec *types.FilesystemSpec) (string, error) {
	if spec.Device != "" {
		return spec.Device, nil
	}
	if spec.Nickname != "" {
		if dev := pc.Node.String(attributes.VolumeDeviceKey(spec.Nickname)); dev != "" {
			return dev, nil
		}
		return "", fmt.Errorf("no device attached for volume %s", spec.Nickname)
	}
	return "", errors.New("no device or volume nickname given")
}

func (Filesystem) create(ctx context.Context, pc *Context, device string, spec *types.FilesystemSpec) (Outcome, error) {
	existing, err := pc.Runner.Run(ctx, "blkid", "-o", "value", "-s", "TYPE", device)
	if err != nil {
		// blkid exits 2 when the device carries no recognisable filesystem
		var exitErr *system.ExitError
		if !errors.As(err, &exitErr) {
			return Outcome{}, fmt.Errorf("failed to probe %s: %w", device, err)
		}
		existing = ""
	}
	if existing = strings.TrimSpace(existing); existing != "" {
		if existing != spec.FSType {
			pc.Logger.Warn().Str("device", device).Str("found", existing).Str("wanted", spec.FSType).
				Msg("device already formatted with a different filesystem")
		}
		return upToDate("%s already formatted as %s", device, existing), nil
	}

	if pc.DryRun {
		return updated("would format %s as %s", device, spec.FSType), nil
	}

	opts, err := shellquote.Split(spec.MkfsOptions)
	if err != nil {
		return Outcome{}, fmt.Errorf("invalid mkfs options %q: %w", spec.MkfsOptions, err)
	}
	args := append([]string{"-t", spec.FSType}, opts...)
	args = append(args, device)
	if _, err := pc.Runner.Run(ctx, "mkfs", args...); err != nil {
		return Outcome{}, fmt.Errorf("failed to format %s: %w", device, err)
	}
	return updated("formatted %s as %s", device, spec.FSType), nil
}

func (f Filesystem) enable(pc *Context, device string, spec *types.FilesystemSpec) (Outcome, error) {
	fstab := f.Fstab
	if fstab == "" {
		fstab = DefaultFstab
	}
	entry := fmt.Sprintf("%s %s %s defaults,nofail 0 2", device, spec.MountPoint, spec.FSType)

	current, err := os.ReadFile(fstab)
	if err != nil && !os.IsNotExist(err) {
		return Outcome{}, fmt.Errorf("failed to read %s: %w", fstab, err)
	}

	next, changed := setFstabEntry(current, spec.MountPoint, entry)
	if !changed {
		return upToDate("fstab entry present"), nil
	}
	if pc.DryRun {
		return updated("would add fstab entry for %s", spec.MountPoint), nil
	}

	mode := os.FileMode(defaultFileMode)
	if info, err := os.Stat(fstab); err == nil {
		mode = info.Mode().Perm()
	}
	if err := writeFileAtomic(fstab, next, mode); err != nil {
		return Outcome{}, err
	}
	return updated("added fstab entry for %s", spec.MountPoint), nil
}

// setFstabEntry replaces the entries for mountPoint with entry, or appends
// it. Comments and other entries are preserved.
func setFstabEntry(fstab []byte, mountPoint, entry string) ([]byte, bool) {
	var out bytes.Buffer
	found, changed := false, false

	scanner := bufio.NewScanner(bytes.NewReader(fstab))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) >= 2 && !strings.HasPrefix(fields[0], "#") && fields[1] == mountPoint {
			if found {
				changed = true
				continue
			}
			found = true
			if strings.Join(fields, " ") != entry {
				line = entry
				changed = true
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}

	if !found {
		out.WriteString(entry)
		out.WriteByte('\n')
		changed = true
	}
	return out.Bytes(), changed
}

func (f Filesystem) mount(ctx context.Context, pc *Context, device string, spec *types.FilesystemSpec) (Outcome, error) {
	mounted := f.Mounted
	if mounted == nil {
		mounted = system.Mounted
	}

	if _, err := os.Stat(spec.MountPoint); err == nil {
		ok, err := mounted(spec.MountPoint)
		if err != nil {
			return Outcome{}, err
		}
		if ok {
			source := f.MountSource
			if source == nil {
				source = system.MountSource
			}
			if src, err := source(spec.MountPoint); err == nil && src != "" && src != device {
				pc.Logger.Warn().Str("mount_point", spec.MountPoint).Str("source", src).Str("device", device).
					Msg("mount point is backed by another device")
			}
			return upToDate("%s already mounted", spec.MountPoint), nil
		}
	}

	if pc.DryRun {
		return updated("would mount %s on %s", device, spec.MountPoint), nil
	}

	if err := os.MkdirAll(spec.MountPoint, defaultDirMode); err != nil {
		return Outcome{}, fmt.Errorf("failed to create mount point: %w", err)
	}
	if _, err := pc.Runner.Run(ctx, "mount", "-t", spec.FSType, device, spec.MountPoint); err != nil {
		return Outcome{}, fmt.Errorf("failed to mount %s: %w", device, err)
	}
	return updated("mounted %s on %s", device, spec.MountPoint), nil
}

// Mount mounts and registers an existing filesystem
type Mount struct {
	Filesystem Filesystem
}

// Actions returns mount and enable
func (Mount) Actions() []types.Action {
	return []types.Action{types.ActionMount, types.ActionEnable}
}

// Apply converges a mount resource
func (m Mount) Apply(ctx context.Context, pc *Context, res *types.Resource) (Outcome, error) {
	if res.Action != types.ActionMount && res.Action != types.ActionEnable {
		return Outcome{}, unsupported(res)
	}
	return m.Filesystem.Apply(ctx, pc, res)
}
