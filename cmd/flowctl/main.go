// Command flowctl inspects, validates and renders flow documents written by
// the flow editor.
package main

import (
	"os"

	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		logging.Debug("command failed", "error", err)
		os.Exit(1)
	}
}
