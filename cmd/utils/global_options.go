package utils

import (
	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/internal/crashtracker"
)

type GlobalOptionsType struct {
	LogLevel    log.Level
	SentryDSN   string
	Environment string
	Version     string
	GitCommit   string
	DatabaseDSN string
}

// PopulateCrashTrackerOptions populates the CrashTrackerOptions from the global options.
func (g GlobalOptionsType) PopulateCrashTrackerOptions(crashTrackerOptions *crashtracker.CrashTrackerOptions) {
	if crashTrackerOptions.CrashTrackerType == crashtracker.CrashTrackerTypeSentry {
		crashTrackerOptions.SentryDSN = g.SentryDSN
	}
	crashTrackerOptions.Environment = g.Environment
	crashTrackerOptions.GitCommit = g.GitCommit
}
