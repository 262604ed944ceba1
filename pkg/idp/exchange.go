// Package idp exchanges a signed client assertion for an access token
// at the identity domain token endpoint (RFC 7523 jwt-bearer grant).
package idp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/oicops/oic-promote/internal/requests"
	"github.com/oicops/oic-promote/pkg/assertion"
	"github.com/oicops/oic-promote/pkg/types"
)

// jwtBearerGrantType is the OAuth2 grant for assertion-based exchange
const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// Default network timeouts. The exchange is a single round trip; any
// call that takes longer than this has failed.
const (
	DefaultRequestTimeout = 60 * time.Second
)

// ExchangeConfig holds the token endpoint coordinates and confidential
// client credentials. Credentials are passed explicitly, never read
// from ambient process state.
type ExchangeConfig struct {
	// TokenURL is the identity domain token endpoint,
	// e.g. https://idcs-xxxx.identity.oraclecloud.com/oauth2/v1/token
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
}

// Exchanger submits client assertions to one token endpoint.
type Exchanger struct {
	httpClient requests.HttpClient
}

// tokenResponse mirrors the identity domain token endpoint JSON.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// NewExchanger creates an Exchanger. A nil httpClient gets a default
// client with an explicit overall timeout.
func NewExchanger(httpClient requests.HttpClient) *Exchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	return &Exchanger{httpClient: httpClient}
}

// Exchange submits the assertion with the jwt-bearer grant and returns
// the issued bearer token. It performs no retries; the caller decides
// retry policy for transient network failures.
func (e *Exchanger) Exchange(ctx context.Context, cfg ExchangeConfig, asrt *assertion.Assertion) (*types.AccessToken, error) {
	if cfg.TokenURL == "" {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "token URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "client id and client secret are required")
	}
	if asrt == nil || asrt.Compact == "" {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "assertion is required")
	}

	req := &requests.Request{
		Name:   "idp.exchange",
		Method: http.MethodPost,
		URL:    cfg.TokenURL,
	}
	req.SetFormBody(map[string]string{
		"grant_type": jwtBearerGrantType,
		"assertion":  asrt.Compact,
		"scope":      cfg.Scope,
	})
	req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)

	result := requests.Send(ctx, e.httpClient, req)
	if err := result.Err(); err != nil {
		return nil, types.NewClientError(types.ErrCodeNetworkError, err.Error())
	}

	if result.StatusCode() < 200 || result.StatusCode() > 299 {
		return nil, rejectionError(result.StatusCode(), result.Body())
	}

	var tokenResp tokenResponse
	if err := result.Scan(&tokenResp); err != nil {
		return nil, types.NewHTTPError(types.ErrCodeAuthenticationRejected,
			"token endpoint returned unparseable body: "+err.Error(),
			result.StatusCode(), result.Body())
	}

	// The identity domain has been observed to answer HTTP 200 with a
	// null or empty access_token on misconfigured clients. Check the
	// token value explicitly rather than trusting the status code.
	if tokenResp.AccessToken == "" || tokenResp.AccessToken == "null" {
		return nil, types.NewHTTPError(types.ErrCodeAuthenticationRejected,
			"token endpoint returned HTTP 200 without a usable access token",
			result.StatusCode(), result.Body())
	}

	slog.Debug("obtained access token",
		slog.String("tokenType", tokenResp.TokenType),
		slog.Int64("expiresIn", tokenResp.ExpiresIn))

	return &types.AccessToken{
		Value:      tokenResp.AccessToken,
		TokenType:  tokenResp.TokenType,
		ExpiresIn:  tokenResp.ExpiresIn,
		ObtainedAt: time.Now(),
	}, nil
}

// rejectionError surfaces the endpoint's error/error_description fields
// when the body carries them.
func rejectionError(statusCode int, body []byte) *types.ClientError {
	msg := "token exchange rejected"
	var errResp tokenResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		msg = msg + ": " + errResp.Error
		if errResp.ErrorDescription != "" {
			msg = msg + ": " + errResp.ErrorDescription
		}
	}
	return types.NewHTTPError(types.ErrCodeAuthenticationRejected, msg, statusCode, body)
}
