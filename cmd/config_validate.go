package cmd

import (
	"fmt"
	"os"

	"github.com/norrisp90/geneticai/internal/settings"
	"github.com/spf13/cobra"
)

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "validate the settings document",
	Long:  "parse geneticai.toml, apply defaults and report any schema violations",
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to get current directory: %v", err)))
			os.Exit(1)
		}

		cfg, err := settings.Load(cwd)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
			os.Exit(1)
		}

		fmt.Println(successStyle.Render(fmt.Sprintf("  [done] %s is valid", settings.FileName)))
		fmt.Println()
		fmt.Printf("    %s %s\n", dimStyle.Render("app name:"), valueStyle.Render(cfg.UI.Name))
		fmt.Printf("    %s %s\n", dimStyle.Render("session timeout:"), valueStyle.Render(fmt.Sprintf("%ds", cfg.Project.SessionTimeout)))
		fmt.Printf("    %s %s\n", dimStyle.Render("telemetry:"), valueStyle.Render(fmt.Sprintf("%t", cfg.Project.TelemetryEnabled())))
		fmt.Println()
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
