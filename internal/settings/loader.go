package settings

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/norrisp90/geneticai/pkg/models"
)

const FileName = "geneticai.toml"

func Load(projectPath string) (*models.Settings, error) {
	configPath := filepath.Join(projectPath, FileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s not found in %s", FileName, projectPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var settings models.Settings
	if err := toml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	if err := validateAndSetDefaults(&settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &settings, nil
}

// LoadOrDefault returns a fully defaulted settings document when no
// geneticai.toml exists. Every field is optional, including the file itself.
func LoadOrDefault(projectPath string) (*models.Settings, error) {
	configPath := filepath.Join(projectPath, FileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		settings := &models.Settings{}
		if err := validateAndSetDefaults(settings); err != nil {
			return nil, err
		}
		return settings, nil
	}

	return Load(projectPath)
}

func validateAndSetDefaults(settings *models.Settings) error {
	if settings.Project.Telemetry == nil {
		telemetry := true
		settings.Project.Telemetry = &telemetry
	}

	if settings.Project.SessionTimeout == 0 {
		settings.Project.SessionTimeout = 3600 // one hour of inactivity
	}
	if settings.Project.SessionTimeout < 0 {
		return fmt.Errorf("session_timeout must be positive, got: %d", settings.Project.SessionTimeout)
	}

	if len(settings.Project.AllowOrigins) == 0 {
		settings.Project.AllowOrigins = []string{"*"}
	}
	for _, origin := range settings.Project.AllowOrigins {
		if origin == "*" {
			continue
		}
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid origin %q (must be scheme://host)", origin)
		}
	}

	for _, name := range settings.Project.UserEnv {
		if !isValidEnvName(name) {
			return fmt.Errorf("invalid user_env entry: %q", name)
		}
	}

	if settings.Features.SpeechToText.Enabled && settings.Features.SpeechToText.Language == "" {
		settings.Features.SpeechToText.Language = "en-US"
	}

	if settings.UI.Name == "" {
		settings.UI.Name = "GENeticAI"
	}
	if settings.UI.Description == "" {
		settings.UI.Description = "Chat with an Azure AI Agent"
	}

	if settings.Meta.GeneratedBy == "" {
		settings.Meta.GeneratedBy = "geneticai"
	}

	return nil
}

func isValidEnvName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for _, c := range name {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}

// CheckUserEnv reports the user_env variables missing from the environment.
func CheckUserEnv(settings *models.Settings) []string {
	var missing []string
	for _, name := range settings.Project.UserEnv {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
