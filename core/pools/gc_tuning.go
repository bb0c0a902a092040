package pools

import (
	"runtime/debug"
)

// GCConfig holds GC tuning parameters
type GCConfig struct {
	// GOGC sets the garbage collection target percentage.
	// 0 leaves the runtime setting alone; negative disables collection.
	GOGC int

	// MemoryLimit sets the soft memory limit in bytes.
	// 0 leaves the runtime setting alone.
	MemoryLimit int64
}

// GCSettings records the values in force before ApplyGCConfig changed them
type GCSettings struct {
	gogc        int
	gogcChanged bool
	memoryLimit int64
}

// ApplyGCConfig applies GC tuning and returns the previous settings
func ApplyGCConfig(cfg GCConfig) GCSettings {
	// a negative input reads the limit without changing it
	prev := GCSettings{memoryLimit: debug.SetMemoryLimit(-1)}

	if cfg.GOGC != 0 {
		prev.gogc = debug.SetGCPercent(cfg.GOGC)
		prev.gogcChanged = true
	}
	if cfg.MemoryLimit > 0 {
		debug.SetMemoryLimit(cfg.MemoryLimit)
	}

	return prev
}

// Restore puts back settings returned by ApplyGCConfig
func (s GCSettings) Restore() {
	if s.gogcChanged {
		debug.SetGCPercent(s.gogc)
	}
	debug.SetMemoryLimit(s.memoryLimit)
}
