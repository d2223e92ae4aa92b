package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "manage geneticai configuration",
	Long:  "inspect and validate the geneticai.toml settings document",
}

func init() {
	rootCmd.AddCommand(configCmd)
}
