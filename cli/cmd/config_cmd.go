package cmd

import (
	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

func init() {
	configCmd.AddCommand(configNewCmd)
	configNewCmd.Flags().BoolVar(&configNewAsEnvFlag, "env", false, "print as environment variable exports")
}
