// Package kernel sequences the boot-time wiring of every subsystem
// (spec.md §2's data-flow paragraph, component-by-component) into one
// process-wide Kernel value, and loads the boot-time configuration
// that shapes it.
//
// Grounded on pkg/serverinit/serverinit.go, which reads a JSON config
// via go4.org/jsonconfig and wires handlers from it in a fixed order;
// Boot plays the same role one level down the stack, wiring kernel
// subsystems instead of HTTP handlers.
package kernel

import (
	"fmt"

	"go4.org/jsonconfig"
)

// Config is the boot-time configuration: the host-simulation's stand-in
// for the bootloader-supplied memory map and command line (spec.md §2:
// "Boot receives a memory map and command line from the bootloader").
type Config struct {
	CommandLine       string
	TotalFrames       uint64
	PageCacheCapacity int
	HeapSize          uintptr
	IrqGSICount       int
}

// LoadConfig reads path as a go4.org/jsonconfig document and fills in
// defaults for anything omitted, the way serverinit's config loading
// leaves optional keys to OptionalString/OptionalInt.
func LoadConfig(path string) (*Config, error) {
	obj, err := jsonconfig.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kernel: reading config: %w", err)
	}
	cfg := &Config{
		CommandLine:       obj.OptionalString("commandLine", ""),
		TotalFrames:       uint64(obj.OptionalInt("totalFrames", 1<<16)),
		PageCacheCapacity: obj.OptionalInt("pageCacheCapacity", 256),
		HeapSize:          uintptr(obj.OptionalInt("heapSize", 1<<24)),
		IrqGSICount:       obj.OptionalInt("irqGSICount", 16),
	}
	if err := obj.Validate(); err != nil {
		return nil, fmt.Errorf("kernel: config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration Boot uses when the caller
// has no JSON document to load from (e.g. cmd/kernelsim's harness),
// matching LoadConfig's defaults exactly.
func DefaultConfig() *Config {
	return &Config{
		TotalFrames:       1 << 16,
		PageCacheCapacity: 256,
		HeapSize:          1 << 24,
		IrqGSICount:       16,
	}
}
