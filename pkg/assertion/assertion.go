// Package assertion builds and signs the RS256 client assertion (JWT)
// exchanged with the identity domain for an access token.
package assertion

import (
	"crypto/rsa"
	"os"
	"runtime"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oicops/oic-promote/pkg/types"
)

// MaxValidity is the longest assertion lifetime the identity domain
// accepts. The window stays conservative because clock skew between
// client and server is unmanaged.
const MaxValidity = 300 * time.Second

// SigningIdentity encapsulates an RSA private key with the metadata the
// identity domain correlates it with. It prevents direct access to the
// raw key material and is immutable once loaded.
type SigningIdentity struct {
	key *rsa.PrivateKey
	kid string
	iss string
}

// Signer interface for testing and abstraction
type Signer interface {
	Build(subject, audience string, validity time.Duration) (*Assertion, error)
	Kid() string
	Issuer() string
}

// Assertion is one signed client assertion. It must never be reused
// across two token exchanges; every Build produces a fresh jti and
// iat/exp window.
type Assertion struct {
	// Compact is the three-segment base64url JWS form sent on the wire.
	Compact string
	// Claims holds the claim set that was signed, for inspection.
	Claims types.AssertionClaims
}

// LoadIdentity parses a PEM-encoded RSA private key (PKCS#1 or PKCS#8)
// and binds it to the certificate alias (kid) and client identifier
// (iss) registered with the identity domain.
func LoadIdentity(privateKeyPEM []byte, kid, issuer string) (*SigningIdentity, error) {
	if kid == "" {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "key id (kid) is required: it must name a certificate alias registered with the identity domain")
	}
	if issuer == "" {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "issuer (client id) is required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, types.NewClientError(types.ErrCodeInvalidKeyMaterial, "failed to parse RSA private key: "+err.Error())
	}

	identity := &SigningIdentity{
		key: key,
		kid: kid,
		iss: issuer,
	}

	// Set up finalizer to drop the key reference on GC
	runtime.SetFinalizer(identity, (*SigningIdentity).zero)

	return identity, nil
}

// LoadIdentityFromFile reads the private key PEM from disk once and
// loads it. No other disk or network side effects occur.
func LoadIdentityFromFile(path, kid, issuer string) (*SigningIdentity, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewClientError(types.ErrCodeInvalidKeyMaterial, "failed to read private key file "+path+": "+err.Error())
	}
	return LoadIdentity(pemBytes, kid, issuer)
}

// Build constructs and signs a client assertion for the given subject
// user and audience. validity must be positive and at most MaxValidity.
func (id *SigningIdentity) Build(subject, audience string, validity time.Duration) (*Assertion, error) {
	if id.key == nil {
		return nil, types.NewClientError(types.ErrCodeInvalidKeyMaterial, "signing identity has no private key")
	}
	if subject == "" {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "subject must not be empty")
	}
	if audience == "" {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "audience must not be empty")
	}
	if validity <= 0 || validity > MaxValidity {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "validity must be positive and at most 300s")
	}

	now := time.Now()
	claims := types.AssertionClaims{
		Issuer:    id.iss,
		Subject:   subject,
		Audience:  audience,
		JTI:       uuid.NewString(), // uniqueness only, not secrecy
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &claims)
	token.Header["kid"] = id.kid

	compact, err := token.SignedString(id.key)
	if err != nil {
		return nil, types.NewClientError(types.ErrCodeSigningFailure, "failed to sign assertion: "+err.Error())
	}

	return &Assertion{
		Compact: compact,
		Claims:  claims,
	}, nil
}

// Kid returns the key identifier associated with this identity
func (id *SigningIdentity) Kid() string {
	return id.kid
}

// Issuer returns the client identifier associated with this identity
func (id *SigningIdentity) Issuer() string {
	return id.iss
}

// zero drops the key reference and metadata (called by finalizer)
func (id *SigningIdentity) zero() {
	id.key = nil
	id.kid = ""
	id.iss = ""
}
