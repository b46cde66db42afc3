// Package console is the keyboard input loop spec.md §1 treats as an
// external collaborator: it issues control commands to the core but is not
// itself part of the coordination-plane subject matter (spec §6).
package console

import (
	"bufio"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Controller is implemented by each node's top-level wiring to react to the
// four console commands.
type Controller interface {
	// Stop cooperatively stops the actor system (command "q").
	Stop()
	// StartProcessing begins processing orders (command "s").
	StartProcessing()
	// CloseConnections closes all peer connections (command "cc").
	CloseConnections()
	// Reconnect re-establishes peer connections (command "rc").
	Reconnect()
}

// Run reads newline-delimited commands from r until Stop is observed or r
// is exhausted. Unknown input is logged at warn level and otherwise
// ignored, per spec §6.
func Run(r io.Reader, ctrl Controller, log *zap.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmd := strings.TrimSpace(sc.Text())
		switch cmd {
		case "q":
			log.Info("console: stop requested")
			ctrl.Stop()
			return
		case "s":
			log.Info("console: start processing requested")
			ctrl.StartProcessing()
		case "cc":
			log.Info("console: close connections requested")
			ctrl.CloseConnections()
		case "rc":
			log.Info("console: reconnect requested")
			ctrl.Reconnect()
		case "":
			// ignore blank lines
		default:
			log.Warn("console: unknown command", zap.String("input", cmd))
		}
	}
}
