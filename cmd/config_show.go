package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/norrisp90/geneticai/internal/settings"
	"github.com/spf13/cobra"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the effective settings",
	Long:  "print the settings document after defaults have been applied",
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to get current directory: %v", err)))
			os.Exit(1)
		}

		cfg, err := settings.LoadOrDefault(cwd)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
			os.Exit(1)
		}

		encoder := toml.NewEncoder(os.Stdout)
		if err := encoder.Encode(cfg); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to encode settings: %v", err)))
			os.Exit(1)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
