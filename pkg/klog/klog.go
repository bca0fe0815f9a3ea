// Package klog is the kernel's single diagnostic stream.
//
// Every subsystem logs through this package instead of reaching for its
// own logger, the same way the original kernel funnels everything
// through one logging module (orig: Kernel/Core/logging.rs) and the way
// the teacher never adopts more than a single log stream per process.
package klog

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
)

var (
	mu      sync.Mutex
	handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger  = slog.New(handler)
)

// SetOutput redirects the diagnostic stream; tests use this to capture
// fatal output without writing to stderr.
func SetOutput(w *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = w
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// For returns a logger scoped to a subsystem name, analogous to the
// per-module log.Printf prefixes the teacher uses.
func For(subsystem string) *slog.Logger {
	return current().With(slog.String("subsystem", subsystem))
}

// Debugf, Infof, Warnf and Errorf are convenience wrappers used by
// subsystems that don't need structured fields.
func Debugf(format string, args ...any) { current().Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { current().Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { current().Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { current().Error(fmt.Sprintf(format, args...)) }

// Panicf reports an invariant violation: a use-after-free, a handle
// class mismatch, a double free, anything §7 classifies as a bug rather
// than a recoverable error. It logs a backtrace and panics, mirroring
// "a fatal core panic halts the originating CPU, prints a register dump
// and backtrace ... and deliberately does not attempt to continue."
func Panicf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	current().Error(msg, slog.String("stack", string(debug.Stack())))
	panic(msg)
}

// Goroutine returns a short identifier for the calling goroutine's stack,
// used by pkg/spinlock's HoldInterrupts nesting check the way
// RWMutexTracker in the teacher's pkg/syncutil records lock holders.
func Goroutine() string {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
