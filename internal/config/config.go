// Package config loads the per-environment promotion configuration:
// identity domain coordinates, OIC instance URLs, signing identities
// and connection property overrides.
package config

import (
	"fmt"
	"time"

	oicpromote "github.com/oicops/oic-promote"
)

// Environment holds everything needed to authenticate against and call
// one OIC tenancy (DEV, TEST, PROD, ...).
type Environment struct {
	Name string `yaml:"-"`

	// IdcsURL is the identity domain base URL; the token endpoint is
	// IdcsURL + /oauth2/v1/token.
	IdcsURL string `yaml:"idcsUrl"`
	// OicURL is the OIC instance base URL.
	OicURL string `yaml:"oicUrl"`

	ClientID string `yaml:"clientId"`
	// ClientSecret is never stored in the YAML file; it is resolved
	// from the OIC_<ENV>_CLIENT_SECRET environment variable.
	ClientSecret string `yaml:"-"`
	Scope        string `yaml:"scope"`

	// KeyID names the certificate alias registered with the identity
	// domain for the assertion signing key. Required.
	KeyID          string `yaml:"keyId"`
	PrivateKeyFile string `yaml:"privateKeyFile"`
	SubjectUser    string `yaml:"subjectUser"`
	Audience       string `yaml:"audience"`

	// AssertionValiditySeconds defaults to 300, the maximum the
	// identity domain accepts.
	AssertionValiditySeconds int `yaml:"assertionValiditySeconds"`
}

// TokenURL returns the identity domain token endpoint
func (e *Environment) TokenURL() string {
	return e.IdcsURL + "/oauth2/v1/token"
}

// AssertionValidity returns the configured assertion lifetime
func (e *Environment) AssertionValidity() time.Duration {
	if e.AssertionValiditySeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(e.AssertionValiditySeconds) * time.Second
}

// Config is the full promotion configuration
type Config struct {
	Environments map[string]*Environment `yaml:"environments"`

	// Connections maps environment name -> connection id -> property
	// patches to apply after import into that environment.
	Connections map[string]map[string][]oicpromote.ConnectionProperty `yaml:"connections"`

	LogLevel string `yaml:"logLevel"`
}

// Env returns the named environment or an error listing what exists
func (c *Config) Env(name string) (*Environment, error) {
	env, ok := c.Environments[name]
	if !ok {
		return nil, fmt.Errorf("environment %q is not configured (have %d environments)", name, len(c.Environments))
	}
	return env, nil
}

// ConnectionPatches returns the property patches for one environment
func (c *Config) ConnectionPatches(envName string) map[string][]oicpromote.ConnectionProperty {
	return c.Connections[envName]
}

// Validate checks that every configured environment is complete.
// Returns an error describing the first problem found.
func (c *Config) Validate() error {
	if len(c.Environments) == 0 {
		return fmt.Errorf("config: no environments configured")
	}
	for name, env := range c.Environments {
		if env == nil {
			return fmt.Errorf("config: environment %q is empty", name)
		}
		if env.IdcsURL == "" {
			return fmt.Errorf("config: environment %q: idcsUrl is required", name)
		}
		if env.OicURL == "" {
			return fmt.Errorf("config: environment %q: oicUrl is required", name)
		}
		if env.ClientID == "" {
			return fmt.Errorf("config: environment %q: clientId is required", name)
		}
		// kid is required: the identity domain correlates the signing
		// key to a pre-registered certificate alias through it.
		if env.KeyID == "" {
			return fmt.Errorf("config: environment %q: keyId is required", name)
		}
		if env.PrivateKeyFile == "" {
			return fmt.Errorf("config: environment %q: privateKeyFile is required", name)
		}
		if env.SubjectUser == "" {
			return fmt.Errorf("config: environment %q: subjectUser is required", name)
		}
		if env.Audience == "" {
			return fmt.Errorf("config: environment %q: audience is required", name)
		}
		if env.AssertionValiditySeconds < 0 || env.AssertionValiditySeconds > 300 {
			return fmt.Errorf("config: environment %q: assertionValiditySeconds must be between 1 and 300", name)
		}
	}
	return nil
}
