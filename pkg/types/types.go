// Package types defines shared types used across the OIC promotion client
package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AssertionClaims represents the JWT claim set for the IDCS user assertion.
// The identity domain expects exactly these claims for the jwt-bearer grant.
type AssertionClaims struct {
	Issuer    string           `json:"iss"`
	Subject   string           `json:"sub"`
	Audience  string           `json:"aud"`
	JTI       string           `json:"jti"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

// GetExpirationTime implements jwt.Claims interface
func (c *AssertionClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.ExpiresAt, nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *AssertionClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.IssuedAt, nil
}

// GetNotBefore implements jwt.Claims interface
func (c *AssertionClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *AssertionClaims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

// GetSubject implements jwt.Claims interface
func (c *AssertionClaims) GetSubject() (string, error) {
	return c.Subject, nil
}

// GetAudience implements jwt.Claims interface
func (c *AssertionClaims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

// AccessToken represents a bearer token issued by the identity domain.
// It is owned by the caller for one batch of API calls and is never
// persisted or refreshed; expired tokens must be regenerated.
type AccessToken struct {
	Value     string
	TokenType string
	// ExpiresIn is the advertised lifetime in seconds (contractually ~3600).
	ExpiresIn int64
	// ObtainedAt records when the token was issued, for callers that want
	// to decide whether a long batch should mint a fresh token.
	ObtainedAt time.Time
}

// Expired reports whether the token lifetime has elapsed.
func (t *AccessToken) Expired() bool {
	if t.ExpiresIn <= 0 {
		return true
	}
	return time.Since(t.ObtainedAt) >= time.Duration(t.ExpiresIn)*time.Second
}
