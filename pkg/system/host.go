package system

import (
	"fmt"
	"net"

	"github.com/moby/sys/mountinfo"
	"github.com/pbnjay/memory"
)

// Mounted reports whether path is a mount point
func Mounted(path string) (bool, error) {
	mounted, err := mountinfo.Mounted(path)
	if err != nil {
		return false, fmt.Errorf("failed to inspect mounts for %s: %w", path, err)
	}
	return mounted, nil
}

// MountSource returns the device mounted at path, or "" when nothing is
func MountSource(path string) (string, error) {
	mounts, err := mountinfo.GetMounts(mountinfo.SingleEntryFilter(path))
	if err != nil {
		return "", fmt.Errorf("failed to read mountinfo: %w", err)
	}
	if len(mounts) == 0 {
		return "", nil
	}
	return mounts[0].Source, nil
}

// TotalMemory returns the host memory in the "<n>kB" form used by the
// memory.total attribute, or "" when it cannot be determined.
func TotalMemory() string {
	total := memory.TotalMemory()
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%dkB", total/1024)
}

// PrivateIPs lists non-loopback private IPv4 addresses of the host
func PrivateIPs() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}

	var ips []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() || !ip.IsPrivate() {
			continue
		}
		ips = append(ips, ip.String())
	}
	return ips
}
