package attributes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cuemby/acng/pkg/system"
)

const (
	// DefaultPort is the apt-cacher-ng listening port
	DefaultPort = 3142

	// DefaultCacheDir is where apt-cacher-ng keeps its package cache
	DefaultCacheDir = "/var/cache/" + ServiceName

	// DefaultNickname names the data volume
	DefaultNickname = "data_storage"

	// DefaultVolumeSize is the data volume size in GiB
	DefaultVolumeSize = 10

	// DefaultMountPoint is where the data volume is mounted
	DefaultMountPoint = "/mnt/storage"

	// MinDetachTimeout is the floor for the computed decommission timeout
	MinDetachTimeout = 300

	// DetachSecondsPerGiB scales the decommission timeout with host memory
	DetachSecondsPerGiB = 60

	// DefaultKeepLast is the number of backups kept by cleanup
	DefaultKeepLast = 60
)

// cookbookDefaults are the default-precedence values of the cookbook
var cookbookDefaults = map[string]interface{}{
	KeyCachePort:   DefaultPort,
	KeyCacheServer: nil,
	KeyCacheDir:    DefaultCacheDir,

	KeyDeviceNickname:   DefaultNickname,
	KeyDeviceVolumeSize: DefaultVolumeSize,
	KeyDeviceIOPS:       nil,
	KeyDeviceFilesystem: "ext4",
	KeyDeviceMountPoint: DefaultMountPoint,

	KeyRestoreLineage:   nil,
	KeyRestoreTimestamp: nil,

	KeyBackupLineage:  nil,
	KeyBackupKeepLast: DefaultKeepLast,
}

func (n *Node) applyCookbookDefaults() {
	for key, value := range cookbookDefaults {
		n.v.SetDefault(key, value)
	}
}

// Detect fills automatic host attributes (memory, private addresses) at
// default precedence, leaving anything already provided untouched.
func (n *Node) Detect() {
	if !n.IsSet(KeyMemoryTotal) {
		if total := system.TotalMemory(); total != "" {
			n.Default(KeyMemoryTotal, total)
		}
	}
	if !n.IsSet(KeyCloudPrivateIPs) {
		if ips := system.PrivateIPs(); len(ips) > 0 {
			n.Default(KeyCloudPrivateIPs, ips)
		}
	}
}

// Finalize computes derived defaults. It must run after every layer has been
// loaded because the values depend on other attributes.
func (n *Node) Finalize() error {
	if n.IsSet(KeyDeviceDetachTimeout) {
		return nil
	}
	timeout := MinDetachTimeout
	if n.IsSet(KeyMemoryTotal) {
		computed, err := DetachTimeout(n.String(KeyMemoryTotal))
		if err != nil {
			return &FieldError{Key: KeyMemoryTotal, Reason: err.Error()}
		}
		timeout = computed
	}
	n.Default(KeyDeviceDetachTimeout, timeout)
	return nil
}

var memoryPattern = regexp.MustCompile(`^(\d+)\s*([kKmMgG]i?[bB])?$`)

// ParseMemoryKB converts a memory.total value ("1011228kB", "2GB", "4096")
// to KiB. Unit-less values are KiB, matching /proc/meminfo.
func ParseMemoryKB(raw string) (uint64, error) {
	m := memoryPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("invalid memory size %q", raw)
	}
	value, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory size %q: %w", raw, err)
	}
	switch strings.ToLower(m[2]) {
	case "", "kb", "kib":
		return value, nil
	case "mb", "mib":
		return value * 1024, nil
	case "gb", "gib":
		return value * 1024 * 1024, nil
	}
	return 0, fmt.Errorf("invalid memory unit in %q", raw)
}

// DetachTimeout derives the decommission timeout in seconds from the host
// memory: DetachSecondsPerGiB per started GiB, never below MinDetachTimeout.
func DetachTimeout(memoryTotal string) (int, error) {
	kb, err := ParseMemoryKB(memoryTotal)
	if err != nil {
		return 0, err
	}
	const kbPerGiB = 1024 * 1024
	gib := (kb + kbPerGiB - 1) / kbPerGiB
	timeout := int(gib) * DetachSecondsPerGiB
	if timeout < MinDetachTimeout {
		timeout = MinDetachTimeout
	}
	return timeout, nil
}
