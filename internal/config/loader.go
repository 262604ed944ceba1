package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file, optionally merges a dotenv
// file into the process environment, resolves per-environment secrets
// from environment variables and validates the result.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	r := &envReader{}
	for name, env := range cfg.Environments {
		if env == nil {
			continue
		}
		env.Name = name
		// Secrets never live in the YAML file.
		env.ClientSecret = r.readRequiredString(secretVar(name))
	}
	if r.err != nil {
		return nil, r.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// secretVar names the environment variable carrying the client secret
// for one environment, e.g. OIC_DEV_CLIENT_SECRET.
func secretVar(envName string) string {
	normalized := strings.ToUpper(strings.ReplaceAll(envName, "-", "_"))
	return "OIC_" + normalized + "_CLIENT_SECRET"
}

// envReader reads environment variables and records the first failure
type envReader struct {
	err error
}

func (r *envReader) readRequiredString(key string) string {
	value := os.Getenv(key)
	if value == "" && r.err == nil {
		r.err = fmt.Errorf("required environment variable %s is not set", key)
	}
	return value
}

func (r *envReader) readOptionalString(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
