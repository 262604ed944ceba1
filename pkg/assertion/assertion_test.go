package assertion

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oicops/oic-promote/pkg/types"
)

func generateTestKeyPEM(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return key, pemBytes
}

func TestLoadIdentity_RequiresKid(t *testing.T) {
	_, pemBytes := generateTestKeyPEM(t)

	_, err := LoadIdentity(pemBytes, "", "client-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeConfigurationError, types.CodeOf(err))
}

func TestLoadIdentity_RequiresIssuer(t *testing.T) {
	_, pemBytes := generateTestKeyPEM(t)

	_, err := LoadIdentity(pemBytes, "assert-cert", "")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeConfigurationError, types.CodeOf(err))
}

func TestLoadIdentity_InvalidKeyMaterial(t *testing.T) {
	_, err := LoadIdentity([]byte("not a pem block"), "assert-cert", "client-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidKeyMaterial, types.CodeOf(err))
}

func TestLoadIdentity_PKCS8(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	identity, err := LoadIdentity(pemBytes, "assert-cert", "client-1")
	require.NoError(t, err)
	assert.Equal(t, "assert-cert", identity.Kid())
	assert.Equal(t, "client-1", identity.Issuer())
}

func TestBuild_SignsVerifiableAssertion(t *testing.T) {
	key, pemBytes := generateTestKeyPEM(t)
	identity, err := LoadIdentity(pemBytes, "assert-cert", "client-1")
	require.NoError(t, err)

	validity := 120 * time.Second
	asrt, err := identity.Build("service.user@example.com", "https://identity.oraclecloud.com/", validity)
	require.NoError(t, err)
	require.NotEmpty(t, asrt.Compact)

	// Independent verification with the corresponding public key.
	parsed, err := jwt.ParseWithClaims(asrt.Compact, &types.AssertionClaims{}, func(token *jwt.Token) (interface{}, error) {
		require.IsType(t, &jwt.SigningMethodRSA{}, token.Method)
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "RS256", parsed.Header["alg"])
	assert.Equal(t, "JWT", parsed.Header["typ"])
	assert.Equal(t, "assert-cert", parsed.Header["kid"])

	claims := parsed.Claims.(*types.AssertionClaims)
	assert.Equal(t, "client-1", claims.Issuer)
	assert.Equal(t, "service.user@example.com", claims.Subject)
	assert.Equal(t, "https://identity.oraclecloud.com/", claims.Audience)
	assert.NotEmpty(t, claims.JTI)
	assert.Equal(t, validity, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestBuild_FreshJTIPerAssertion(t *testing.T) {
	_, pemBytes := generateTestKeyPEM(t)
	identity, err := LoadIdentity(pemBytes, "assert-cert", "client-1")
	require.NoError(t, err)

	first, err := identity.Build("user", "aud", time.Minute)
	require.NoError(t, err)
	second, err := identity.Build("user", "aud", time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, first.Claims.JTI, second.Claims.JTI)
	assert.NotEqual(t, first.Compact, second.Compact)
}

func TestBuild_InputValidation(t *testing.T) {
	_, pemBytes := generateTestKeyPEM(t)
	identity, err := LoadIdentity(pemBytes, "assert-cert", "client-1")
	require.NoError(t, err)

	cases := []struct {
		name     string
		subject  string
		audience string
		validity time.Duration
	}{
		{"empty subject", "", "aud", time.Minute},
		{"empty audience", "user", "", time.Minute},
		{"zero validity", "user", "aud", 0},
		{"negative validity", "user", "aud", -time.Second},
		{"validity above maximum", "user", "aud", MaxValidity + time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := identity.Build(tc.subject, tc.audience, tc.validity)
			require.Error(t, err)
			assert.Equal(t, types.ErrCodeConfigurationError, types.CodeOf(err))
		})
	}
}

func TestBuild_MaxValidityAccepted(t *testing.T) {
	_, pemBytes := generateTestKeyPEM(t)
	identity, err := LoadIdentity(pemBytes, "assert-cert", "client-1")
	require.NoError(t, err)

	asrt, err := identity.Build("user", "aud", MaxValidity)
	require.NoError(t, err)
	assert.Equal(t, MaxValidity, asrt.Claims.ExpiresAt.Sub(asrt.Claims.IssuedAt.Time))
}
