// Package config provides configuration management for billed.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pigeonworks-llc/billed/pkg/pathutil"
)

// Config represents the application configuration.
type Config struct {
	Web      WebConfig
	Store    StoreConfig
	Emulator EmulatorConfig
	History  HistoryConfig
	Debug    bool
}

// WebConfig configures the browser-facing front end.
type WebConfig struct {
	Addr          string
	SessionSecret string
	MockStore     bool
}

// StoreConfig configures the bills Store Client.
type StoreConfig struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// EmulatorConfig configures the mocked backend store.
type EmulatorConfig struct {
	Addr      string
	DBPath    string
	UploadDir string
	PublicURL string
	Fixtures  string
}

// HistoryConfig configures the submission journal.
type HistoryConfig struct {
	DBPath string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	timeout, err := parseDurationEnv("BILLED_STORE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	mockStore, err := parseBoolEnv("BILLED_MOCK_STORE", false)
	if err != nil {
		return nil, err
	}

	emulatorAddr := getEnvOrDefault("EMULATOR_ADDR", ":8081")

	paths := pathutil.New(pathutil.Config{
		DataRoot:       getEnvOrDefault("BILLED_DATA_DIR", "./data"),
		JournalPath:    os.Getenv("BILLED_HISTORY_DB"),
		EmulatorDBPath: os.Getenv("EMULATOR_DB_PATH"),
		UploadDir:      os.Getenv("EMULATOR_UPLOAD_DIR"),
	})

	config := &Config{
		Web: WebConfig{
			Addr:          getEnvOrDefault("BILLED_ADDR", ":8080"),
			SessionSecret: os.Getenv("BILLED_SESSION_SECRET"),
			MockStore:     mockStore,
		},
		Store: StoreConfig{
			APIURL:       getEnvOrDefault("BILLED_STORE_URL", "http://localhost:8081"),
			ClientID:     getEnvOrDefault("BILLED_CLIENT_ID", "billed"),
			ClientSecret: os.Getenv("BILLED_CLIENT_SECRET"),
			Timeout:      timeout,
		},
		Emulator: EmulatorConfig{
			Addr:      emulatorAddr,
			DBPath:    paths.GetEmulatorDBPath(),
			UploadDir: paths.GetUploadDir(),
			PublicURL: getEnvOrDefault("EMULATOR_PUBLIC_URL", "http://localhost"+emulatorAddr),
			Fixtures:  os.Getenv("EMULATOR_FIXTURES"),
		},
		History: HistoryConfig{
			DBPath: paths.GetJournalPath(),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// It checks if all required fields are set, each given as a path such as
// []string{"web", "sessionSecret"}.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "web":
			switch path[1] {
			case "addr":
				value = c.Web.Addr
			case "sessionSecret":
				value = c.Web.SessionSecret
			}
		case "store":
			switch path[1] {
			case "apiUrl":
				value = c.Store.APIURL
			case "clientId":
				value = c.Store.ClientID
			case "clientSecret":
				value = c.Store.ClientSecret
			}
		case "emulator":
			switch path[1] {
			case "addr":
				value = c.Emulator.Addr
			case "dbPath":
				value = c.Emulator.DBPath
			case "uploadDir":
				value = c.Emulator.UploadDir
			case "publicUrl":
				value = c.Emulator.PublicURL
			}
		case "history":
			if path[1] == "dbPath" {
				value = c.History.DBPath
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDurationEnv parses a time.Duration such as "30s" from an environment variable.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}

	return parsed, nil
}

// parseBoolEnv parses a boolean from an environment variable.
func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value for %s: %s", key, value)
	}

	return parsed, nil
}
