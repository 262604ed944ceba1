package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
environments:
  dev:
    idcsUrl: https://idcs-dev.identity.oraclecloud.com
    oicUrl: https://dev.integration.ocp.oraclecloud.com
    clientId: dev-client
    scope: https://dev.integration.ocp.oraclecloud.com/ic/api/
    keyId: oic-promote-dev
    privateKeyFile: /etc/oic/dev.pem
    subjectUser: svc.promote@example.com
    audience: https://identity.oraclecloud.com/
  test:
    idcsUrl: https://idcs-test.identity.oraclecloud.com
    oicUrl: https://test.integration.ocp.oraclecloud.com
    clientId: test-client
    scope: https://test.integration.ocp.oraclecloud.com/ic/api/
    keyId: oic-promote-test
    privateKeyFile: /etc/oic/test.pem
    subjectUser: svc.promote@example.com
    audience: https://identity.oraclecloud.com/
    assertionValiditySeconds: 120

connections:
  test:
    CONN1:
      - propertyGroup: CONNECTION_PROPS
        propertyName: connectionUrl
        propertyType: URL
        propertyValue: https://test.example.com
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "environments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("OIC_DEV_CLIENT_SECRET", "dev-secret")
	t.Setenv("OIC_TEST_CLIENT_SECRET", "test-secret")

	cfg, err := Load(writeConfig(t, sampleConfig), "")
	require.NoError(t, err)

	dev, err := cfg.Env("dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", dev.Name)
	assert.Equal(t, "dev-secret", dev.ClientSecret)
	assert.Equal(t, "https://idcs-dev.identity.oraclecloud.com/oauth2/v1/token", dev.TokenURL())
	assert.Equal(t, "300s", dev.AssertionValidity().String())

	testEnv, err := cfg.Env("test")
	require.NoError(t, err)
	assert.Equal(t, "test-secret", testEnv.ClientSecret)
	assert.Equal(t, "2m0s", testEnv.AssertionValidity().String())

	patches := cfg.ConnectionPatches("test")
	require.Len(t, patches["CONN1"], 1)
	assert.Equal(t, "connectionUrl", patches["CONN1"][0].PropertyName)
	assert.Empty(t, cfg.ConnectionPatches("dev"))

	_, err = cfg.Env("prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `environment "prod" is not configured`)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("OIC_DEV_CLIENT_SECRET", "dev-secret")
	// OIC_TEST_CLIENT_SECRET intentionally unset.
	os.Unsetenv("OIC_TEST_CLIENT_SECRET")

	_, err := Load(writeConfig(t, sampleConfig), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OIC_TEST_CLIENT_SECRET")
}

func TestLoad_SecretsFromEnvFile(t *testing.T) {
	os.Unsetenv("OIC_DEV_CLIENT_SECRET")
	os.Unsetenv("OIC_TEST_CLIENT_SECRET")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"OIC_DEV_CLIENT_SECRET=dotenv-dev\nOIC_TEST_CLIENT_SECRET=dotenv-test\n"), 0o600))
	// godotenv.Load sets real process env vars; clean them up.
	t.Cleanup(func() {
		os.Unsetenv("OIC_DEV_CLIENT_SECRET")
		os.Unsetenv("OIC_TEST_CLIENT_SECRET")
	})

	cfg, err := Load(writeConfig(t, sampleConfig), envFile)
	require.NoError(t, err)

	dev, err := cfg.Env("dev")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-dev", dev.ClientSecret)
}

func TestValidate_RequiredFields(t *testing.T) {
	base := func() *Environment {
		return &Environment{
			IdcsURL:        "https://idcs.example.com",
			OicURL:         "https://oic.example.com",
			ClientID:       "client",
			KeyID:          "kid",
			PrivateKeyFile: "/etc/oic/key.pem",
			SubjectUser:    "user",
			Audience:       "aud",
		}
	}

	cases := []struct {
		name   string
		mutate func(*Environment)
		want   string
	}{
		{"missing idcsUrl", func(e *Environment) { e.IdcsURL = "" }, "idcsUrl is required"},
		{"missing oicUrl", func(e *Environment) { e.OicURL = "" }, "oicUrl is required"},
		{"missing clientId", func(e *Environment) { e.ClientID = "" }, "clientId is required"},
		{"missing keyId", func(e *Environment) { e.KeyID = "" }, "keyId is required"},
		{"missing privateKeyFile", func(e *Environment) { e.PrivateKeyFile = "" }, "privateKeyFile is required"},
		{"missing subjectUser", func(e *Environment) { e.SubjectUser = "" }, "subjectUser is required"},
		{"missing audience", func(e *Environment) { e.Audience = "" }, "audience is required"},
		{"validity too long", func(e *Environment) { e.AssertionValiditySeconds = 301 }, "between 1 and 300"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := base()
			tc.mutate(env)
			cfg := &Config{Environments: map[string]*Environment{"dev": env}}
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	cfg := &Config{Environments: map[string]*Environment{"dev": base()}}
	require.NoError(t, cfg.Validate())
}

func TestValidate_NoEnvironments(t *testing.T) {
	err := (&Config{}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no environments configured")
}
