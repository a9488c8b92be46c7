// Package logging holds the logger shared by the nmtcov packages.
//
// Libraries log progress of coupling computations at V(1) and matrix
// inversions at V(2). The CLI raises the level with --verbose; without it
// the level comes from NMTCOV_VERBOSE.
package logging

import (
	"log"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

const verboseEnv = "NMTCOV_VERBOSE"

var root = stdr.New(log.New(os.Stderr, "nmtcov ", log.Ltime))

func init() {
	if n, err := strconv.Atoi(os.Getenv(verboseEnv)); err == nil {
		stdr.SetVerbosity(n)
	}
}

// Log returns the shared logger.
func Log() logr.Logger { return root }

// Init applies the --verbose level. Zero keeps the level from the
// environment.
func Init(verbosity int) {
	if verbosity != 0 {
		stdr.SetVerbosity(verbosity)
	}
}
