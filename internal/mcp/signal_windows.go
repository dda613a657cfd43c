//go:build windows

package mcp

import (
	"os"
	"os/signal"
)

// notifySignals forwards Ctrl+C to ch so Run can close the store and audit
// log before exiting. Windows has no SIGTERM.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
