//go:build windows

package main

import (
	"os"
	"os/signal"
)

// setupSignalHandling stops the TUI or host on Ctrl+C. SIGTERM is not
// delivered on Windows.
func setupSignalHandling(sigChan chan os.Signal) {
	signal.Notify(sigChan, os.Interrupt)
}
