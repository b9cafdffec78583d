package cli

import (
	"fmt"
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	Tournament string
	Output     string
	Verbose    bool
}

// DefaultConfig returns a Config seeded from the environment
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("CHIPCTL_SERVER", "http://localhost:8080"),
		Tournament: os.Getenv("CHIPCTL_TOURNAMENT"),
		Output:     "text",
	}
}

// TournamentPath returns the API path of the selected tournament
func (c *Config) TournamentPath() (string, error) {
	if c.Tournament == "" {
		return "", fmt.Errorf("--tournament is required (env: CHIPCTL_TOURNAMENT)")
	}
	return "/api/v1/tournaments/" + c.Tournament, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
