package utils

import "github.com/spf13/cobra"

// PropagatePersistentPreRun runs the parent command's PersistentPreRun, so
// nested commands keep the config ingestion of their ancestors.
var PropagatePersistentPreRun = func(cmd *cobra.Command, args []string) {
	if cmd.Parent().PersistentPreRun != nil {
		cmd.Parent().PersistentPreRun(cmd.Parent(), args)
	}
}

// CallHelpCommand prints the command help. Used as the RunE of commands that
// only exist to group subcommands.
var CallHelpCommand = func(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}
