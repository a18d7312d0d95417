//go:build !linux

package device

// systemMemory falls back to fixed figures on platforms where we do not
// query the OS.
func systemMemory() (total, available int64) {
	return defaultTotalMemory, defaultAvailableMemory
}
