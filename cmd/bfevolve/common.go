// ABOUTME: Shared state and helpers used by every subcommand
// ABOUTME: Debug logging, terminal detection, and string truncation

package main

import (
	"fmt"
	"log"
	"os"
)

// debugLog writes to a file for debugging; nil (and silent) unless -debug
// is passed.
var debugLog *log.Logger

// SetupDebugLog initializes file-backed debug logging and announces it on
// stdout when stdout is a terminal.
func SetupDebugLog(filename string) error {
	if err := InitDebugLog(filename); err != nil {
		return fmt.Errorf("failed to initialize debug log: %w", err)
	}

	if isTTY(os.Stdout) {
		fmt.Printf("Debug logging enabled: %s\n", filename)
	}

	return nil
}

// InitDebugLog opens filename and points debugLog at it.
func InitDebugLog(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugLog = log.New(f, "", log.Ltime|log.Lmicroseconds)

	return nil
}

// debugf logs to the debug file if logging is enabled; otherwise it's a
// no-op, never written to stdout.
func debugf(format string, args ...interface{}) {
	if debugLog != nil {
		debugLog.Printf(format, args...)
	}
}

// isTTY reports whether f is connected to a terminal.
func isTTY(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// truncate truncates s to maxLen characters, adding "..." if it was cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
