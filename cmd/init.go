package cmd

import (
	"fmt"
	"os"

	"github.com/norrisp90/geneticai/internal/settings"
	"github.com/spf13/cobra"
)

var (
	initFull bool
	initName string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a geneticai deployment",
	Long:  "Create a geneticai.toml settings file in the current directory",
	Run:   runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	if _, err := os.Stat(settings.FileName); err == nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %s already exists", settings.FileName)))
		os.Exit(1)
	}

	fmt.Println(titleStyle.Render("==> initializing geneticai deployment"))
	fmt.Println()

	appName := initName
	if appName == "" {
		appName = "GENeticAI"
	}

	fmt.Printf("    %s %s\n", dimStyle.Render("app name:"), valueStyle.Render(appName))
	fmt.Println()

	var config string
	if initFull {
		fmt.Println(progressStyle.Render("  --> creating full configuration..."))
		config = generateFullConfig(appName)
	} else {
		fmt.Println(progressStyle.Render("  --> creating minimal configuration..."))
		config = generateMinimalConfig(appName)
	}

	if err := os.WriteFile(settings.FileName, []byte(config), 0644); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to write %s: %v", settings.FileName, err)))
		os.Exit(1)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("  [done] %s created", settings.FileName)))
	fmt.Println()
	fmt.Println(labelStyle.Render("  next steps:"))
	fmt.Printf("    %s\n", dimStyle.Render(fmt.Sprintf("1. review and customize %s", settings.FileName)))
	fmt.Printf("    %s\n", dimStyle.Render("2. export PROJECT_ENDPOINT and AZURE_AI_AGENT_ID"))
	fmt.Printf("    %s\n", dimStyle.Render("3. launch with: geneticai run --headless"))
	fmt.Println()
}

func generateMinimalConfig(name string) string {
	return fmt.Sprintf(`[project]
enable_telemetry = true
user_env = ["PROJECT_ENDPOINT", "AZURE_AI_AGENT_ID"]
session_timeout = 3600

[ui]
name = %q
description = "Chat with an Azure AI Agent"
`, name)
}

func generateFullConfig(name string) string {
	return fmt.Sprintf(`[project]
enable_telemetry = true
user_env = ["PROJECT_ENDPOINT", "AZURE_AI_AGENT_ID"]
session_timeout = 3600
cache = false
allow_origins = ["*"]

[features]
prompt_playground = false
unsafe_allow_html = false
latex = false
multi_modal = true

[features.speech_to_text]
enabled = false
language = "en-US"

[ui]
name = %q
description = "Chat with an Azure AI Agent"
show_readme_as_default = true
default_collapse_content = true
default_expand_messages = false
hide_cot = false
# github = "https://github.com/your-org/your-repo"
# custom_css = "/public/style.css"
# custom_js = "/public/script.js"
# custom_font = "https://fonts.googleapis.com/css2?family=Inter"

[meta]
generated_by = "geneticai"
`, name)
}

func init() {
	initCmd.Flags().BoolVar(&initFull, "full", false, "generate a full configuration with all sections")
	initCmd.Flags().StringVar(&initName, "name", "", "application display name")
	rootCmd.AddCommand(initCmd)
}
