//go:build linux

package device

import "golang.org/x/sys/unix"

// systemMemory reports total and available host memory in bytes. The
// simulator treats host memory as device memory, so this is what its
// DeviceInfo advertises.
func systemMemory() (total, available int64) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return defaultTotalMemory, defaultAvailableMemory
	}
	unit := int64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return int64(info.Totalram) * unit, int64(info.Freeram) * unit
}
