// Package logger provides leveled logging for the ingestion and playback
// pipeline. Debug output is suppressed unless CHORUS_DEBUG is set, since
// per-file scan logging gets noisy on large libraries.
package logger

import (
	"log"
	"os"
	"sync/atomic"
)

var debugEnabled atomic.Bool

func init() {
	if os.Getenv("CHORUS_DEBUG") != "" {
		debugEnabled.Store(true)
	}
}

// SetDebug toggles debug output at runtime
func SetDebug(on bool) {
	debugEnabled.Store(on)
}

// DebugEnabled reports whether debug output is active
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Info logs informational messages
func Info(format string, args ...interface{}) {
	log.Printf("INFO: "+format, args...)
}

// Warn logs warning messages
func Warn(format string, args ...interface{}) {
	log.Printf("WARN: "+format, args...)
}

// Error logs error messages
func Error(format string, args ...interface{}) {
	log.Printf("ERROR: "+format, args...)
}

// Debug logs debug messages when debug output is enabled
func Debug(format string, args ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	log.Printf("DEBUG: "+format, args...)
}
