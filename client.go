// Package oicpromote provides the OIC promotion client SDK: a thin
// typed wrapper over the integration platform REST API used to move
// integration archives between environments.
package oicpromote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oicops/oic-promote/internal/requests"
	"github.com/oicops/oic-promote/pkg/types"
)

// apiBasePath is the integration REST API root under the instance URL
const apiBasePath = "/ic/api/integration/v1"

// DefaultRequestTimeout bounds one resource call end to end. Archive
// exports of large integrations are the slowest operation.
const DefaultRequestTimeout = 60 * time.Second

// Config contains configuration for the resource client
type Config struct {
	// BaseURL is the OIC instance URL, e.g. https://myoic.integration.ocp.oraclecloud.com
	BaseURL string
	// HTTPClient is optional; a default client with an explicit overall
	// timeout is used when nil.
	HTTPClient requests.HttpClient
}

// Client represents the integration platform resource client. It holds
// no mutable state across calls and is safe for concurrent use; every
// method is an independent request/response cycle. Token lifetime
// management is the caller's responsibility; methods never inspect or
// refresh the token they are handed.
type Client struct {
	baseURL    string
	httpClient requests.HttpClient
}

// NewClient creates a new resource client for one OIC instance
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "base URL is required")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, types.NewClientError(types.ErrCodeConfigurationError, "base URL must start with http:// or https://")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/") + apiBasePath,
		httpClient: httpClient,
	}, nil
}

// ExportIntegration downloads the integration archive (.iar) for the
// given integration version. The archive is an opaque binary blob.
func (c *Client) ExportIntegration(ctx context.Context, token *AccessToken, id IntegrationID) ([]byte, error) {
	req := &requests.Request{
		Name:   "oic.exportIntegration",
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/integrations/%s/archive", c.baseURL, id.pathSegment()),
	}
	req.SetBearerToken(token.Value)
	req.SetHeader("Accept", "application/octet-stream")

	result := requests.Send(ctx, c.httpClient, req)
	if err := result.Err(); err != nil {
		return nil, types.NewClientError(types.ErrCodeNetworkError, err.Error())
	}

	switch {
	case result.StatusCode() == http.StatusNotFound:
		return nil, types.NewHTTPError(types.ErrCodeArtifactNotFound,
			"integration "+id.String()+" not found", result.StatusCode(), result.Body())
	case result.StatusCode() < 200 || result.StatusCode() > 299:
		return nil, types.NewHTTPError(types.ErrCodeExportFailed,
			"export of "+id.String()+" failed", result.StatusCode(), result.Body())
	}

	// The resource server has been observed to answer 200 with an empty
	// body on internal errors; an empty archive is never valid.
	if len(result.Body()) == 0 {
		return nil, types.NewHTTPError(types.ErrCodeEmptyArtifact,
			"export of "+id.String()+" returned an empty archive", result.StatusCode(), nil)
	}

	slog.Debug("exported integration archive",
		slog.String("integration", id.String()),
		slog.Int("bytes", len(result.Body())))

	return result.Body(), nil
}

// ImportIntegration uploads an integration archive. Re-importing the
// same archive is not idempotent: the server records a new versioned
// artifact each time.
func (c *Client) ImportIntegration(ctx context.Context, token *AccessToken, archive []byte) (*ImportReport, error) {
	req := &requests.Request{
		Name:   "oic.importIntegration",
		Method: http.MethodPost,
		URL:    c.baseURL + "/integrations/archive",
	}
	req.SetBearerToken(token.Value)
	req.SetRawBody("application/octet-stream", archive)

	result := requests.Send(ctx, c.httpClient, req)
	if err := result.Err(); err != nil {
		return nil, types.NewClientError(types.ErrCodeNetworkError, err.Error())
	}

	if result.StatusCode() < 200 || result.StatusCode() > 299 {
		return nil, types.NewHTTPError(types.ErrCodeImportRejected,
			"import rejected by resource server", result.StatusCode(), result.Body())
	}

	// Parse the response best-effort; diagnostics only.
	report := &ImportReport{RawBody: types.TruncateBody(result.Body())}
	if err := json.Unmarshal(result.Body(), report); err != nil {
		slog.Debug("import response is not JSON", slog.String("error", err.Error()))
	}

	return report, nil
}

// UpdateConnectionProperty patches one connection property. Setting the
// same value twice is a no-op on the resource side.
func (c *Client) UpdateConnectionProperty(ctx context.Context, token *AccessToken, connectionID string, prop ConnectionProperty) error {
	if connectionID == "" {
		return types.NewClientError(types.ErrCodeConfigurationError, "connection id is required")
	}

	req := &requests.Request{
		Name:   "oic.updateConnectionProperty",
		Method: http.MethodPatch,
		URL:    c.baseURL + "/connections/" + connectionID,
	}
	req.SetBearerToken(token.Value)
	if err := req.SetJSONBody(prop); err != nil {
		return types.NewClientError(types.ErrCodePropertyUpdateFailed, err.Error())
	}

	result := requests.Send(ctx, c.httpClient, req)
	if err := result.Err(); err != nil {
		return types.NewClientError(types.ErrCodeNetworkError, err.Error())
	}

	if result.StatusCode() < 200 || result.StatusCode() > 299 {
		return types.NewHTTPError(types.ErrCodePropertyUpdateFailed,
			fmt.Sprintf("failed to update %s/%s on connection %s", prop.PropertyGroup, prop.PropertyName, connectionID),
			result.StatusCode(), result.Body())
	}

	return nil
}

// TestConnection invokes the connection test and reports the outcome.
// A failing test is an expected, reportable business result, so any
// non-200 status yields (false, nil); only transport failures return an
// error.
func (c *Client) TestConnection(ctx context.Context, token *AccessToken, connectionID string) (bool, error) {
	if connectionID == "" {
		return false, types.NewClientError(types.ErrCodeConfigurationError, "connection id is required")
	}

	req := &requests.Request{
		Name:   "oic.testConnection",
		Method: http.MethodPost,
		URL:    c.baseURL + "/connections/" + connectionID + "/test",
	}
	req.SetBearerToken(token.Value)

	result := requests.Send(ctx, c.httpClient, req)
	if err := result.Err(); err != nil {
		return false, types.NewClientError(types.ErrCodeNetworkError, err.Error())
	}

	if result.StatusCode() != http.StatusOK {
		slog.Debug("connection test failed",
			slog.String("connection", connectionID),
			slog.Int("status", result.StatusCode()))
		return false, nil
	}
	return true, nil
}

// ActivateIntegration activates an imported integration version
func (c *Client) ActivateIntegration(ctx context.Context, token *AccessToken, id IntegrationID) error {
	req := &requests.Request{
		Name:   "oic.activateIntegration",
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/integrations/%s/activate", c.baseURL, id.pathSegment()),
	}
	req.SetBearerToken(token.Value)

	result := requests.Send(ctx, c.httpClient, req)
	if err := result.Err(); err != nil {
		return types.NewClientError(types.ErrCodeNetworkError, err.Error())
	}

	if result.StatusCode() < 200 || result.StatusCode() > 299 {
		return types.NewHTTPError(types.ErrCodeActivationFailed,
			"activation of "+id.String()+" failed", result.StatusCode(), result.Body())
	}

	return nil
}
