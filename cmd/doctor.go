package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/norrisp90/geneticai/internal/settings"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check deployment health and configuration",
	Long:  "Verify the settings document, the launch environment and agent endpoint reachability",
	Run:   runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) {
	fmt.Println(titleStyle.Render("==> checking deployment health"))
	fmt.Println()

	allGood := true

	allGood = checkSettingsFile() && allGood
	allGood = checkLaunchEnv() && allGood
	allGood = checkEndpoint() && allGood

	fmt.Println()
	if allGood {
		fmt.Println(successStyle.Render("  [done] all checks passed"))
		fmt.Println()
		fmt.Println(dimStyle.Render("  your deployment is ready: geneticai run --headless"))
	} else {
		fmt.Println(errorStyle.Render("  [error] some checks failed"))
		fmt.Println()
		fmt.Println(dimStyle.Render("  fix the issues above before launching the gateway"))
		os.Exit(1)
	}
}

func checkSettingsFile() bool {
	fmt.Println(labelStyle.Render("  settings"))

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Printf("    %s cannot resolve working directory\n", errorStyle.Render("[✗]"))
		return false
	}

	if _, err := os.Stat(settings.FileName); os.IsNotExist(err) {
		fmt.Printf("    %s no %s found, framework defaults apply\n", infoStyle.Render("[–]"), settings.FileName)
		fmt.Printf("      %s\n", dimStyle.Render("create one with 'geneticai init'"))
		return true
	}

	cfg, err := settings.Load(cwd)
	if err != nil {
		fmt.Printf("    %s %s is invalid\n", errorStyle.Render("[✗]"), settings.FileName)
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		return false
	}

	fmt.Printf("    %s %s parsed\n", successStyle.Render("[✓]"), valueStyle.Render(settings.FileName))
	fmt.Printf("      %s %s\n", dimStyle.Render("app name:"), dimStyle.Render(cfg.UI.Name))
	fmt.Printf("      %s %s\n", dimStyle.Render("session timeout:"), dimStyle.Render(fmt.Sprintf("%ds", cfg.Project.SessionTimeout)))
	return true
}

func checkLaunchEnv() bool {
	fmt.Println(labelStyle.Render("  environment"))

	rt, err := settings.ResolveRuntime()
	if err != nil {
		fmt.Printf("    %s %v\n", errorStyle.Render("[✗]"), err)
		return false
	}

	fmt.Printf("    %s bind address %s\n", successStyle.Render("[✓]"), valueStyle.Render(rt.Addr()))

	ok := true
	if rt.ProjectEndpoint == "" {
		fmt.Printf("    %s PROJECT_ENDPOINT is not set\n", errorStyle.Render("[✗]"))
		ok = false
	} else {
		fmt.Printf("    %s PROJECT_ENDPOINT is set\n", successStyle.Render("[✓]"))
	}
	if rt.AgentID == "" {
		fmt.Printf("    %s AZURE_AI_AGENT_ID is not set\n", errorStyle.Render("[✗]"))
		ok = false
	} else {
		fmt.Printf("    %s AZURE_AI_AGENT_ID is set\n", successStyle.Render("[✓]"))
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ok
	}
	cfg, err := settings.LoadOrDefault(cwd)
	if err != nil {
		return ok
	}
	if missing := settings.CheckUserEnv(cfg); len(missing) > 0 {
		fmt.Printf("    %s missing user_env variables: %s\n", errorStyle.Render("[✗]"), strings.Join(missing, ", "))
		ok = false
	}

	return ok
}

func checkEndpoint() bool {
	fmt.Println(labelStyle.Render("  agent endpoint"))

	endpoint := os.Getenv("PROJECT_ENDPOINT")
	if endpoint == "" {
		fmt.Printf("    %s skipped, PROJECT_ENDPOINT not set\n", infoStyle.Render("[–]"))
		return true
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		fmt.Printf("    %s PROJECT_ENDPOINT is not a valid URL\n", errorStyle.Render("[✗]"))
		return false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Head(parsed.Scheme + "://" + parsed.Host)
	if err != nil {
		fmt.Printf("    %s endpoint host not reachable\n", errorStyle.Render("[✗]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		return false
	}
	defer resp.Body.Close()

	fmt.Printf("    %s %s reachable\n", successStyle.Render("[✓]"), valueStyle.Render(parsed.Host))
	return true
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
