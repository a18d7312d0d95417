package device

const (
	defaultTotalMemory     = 8 << 30
	defaultAvailableMemory = 4 << 30
)
