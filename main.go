package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/cmd"
	cmdUtils "github.com/ninjapay/payments-reconciler/cmd/utils"
)

// Version is the official version of this application. Whenever it's changed
// here, the deployment manifests need to be updated as well.
const Version = "1.3.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	preConfigureLogger()

	if err := cmdUtils.LoadEnvFile(); err != nil {
		log.Warnf("Error loading env file: %s", err.Error())
	}

	rootCmd := cmd.SetupCLI(Version, GitCommit)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing root command: %s", err.Error())
	}
}

// preConfigureLogger will set the log level to Trace, so logs work from the
// start. This will eventually be overwritten in cmd/root.go
func preConfigureLogger() {
	log.SetLevel(log.TraceLevel)
}
