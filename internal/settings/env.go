package settings

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Runtime holds the environment-derived launch configuration.
type Runtime struct {
	// Host is the bind address (HOST)
	Host string

	// Port is the listen port (PORT, default 8000)
	Port int

	// ProjectEndpoint is the Azure AI project endpoint (PROJECT_ENDPOINT)
	ProjectEndpoint string

	// AgentID identifies the agent to converse with (AZURE_AI_AGENT_ID)
	AgentID string

	// Token is the bearer token for the agents API (AZURE_AI_TOKEN)
	Token string
}

// ResolveRuntime reads the launch environment. A .env file in the working
// directory is loaded first when present; real environment wins over it.
func ResolveRuntime() (*Runtime, error) {
	_ = godotenv.Load()

	rt := &Runtime{
		Host:            getEnvDefault("HOST", "0.0.0.0"),
		Port:            8000,
		ProjectEndpoint: os.Getenv("PROJECT_ENDPOINT"),
		AgentID:         os.Getenv("AZURE_AI_AGENT_ID"),
		Token:           os.Getenv("AZURE_AI_TOKEN"),
	}

	if raw := os.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT value %q: %w", raw, err)
		}
		rt.Port = port
	}

	return rt, nil
}

// Addr returns the host:port bind address.
func (rt *Runtime) Addr() string {
	return fmt.Sprintf("%s:%d", rt.Host, rt.Port)
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
