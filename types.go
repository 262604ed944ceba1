// Package oicpromote defines types for the OIC promotion client SDK
package oicpromote

import (
	"fmt"
	"net/url"

	"github.com/oicops/oic-promote/pkg/types"
)

// IntegrationID identifies one integration version on the resource
// server. The wire form is CODE|VERSION.
type IntegrationID struct {
	Code    string `json:"code"`
	Version string `json:"version"`
}

// String returns the CODE|VERSION wire form
func (id IntegrationID) String() string {
	return fmt.Sprintf("%s|%s", id.Code, id.Version)
}

// pathSegment returns the identifier escaped for use in a URL path
func (id IntegrationID) pathSegment() string {
	return url.PathEscape(id.String())
}

// ConnectionProperty is one per-environment connection property patch.
// Patching the same value twice is a no-op on the resource side.
type ConnectionProperty struct {
	PropertyGroup string `json:"propertyGroup"`
	PropertyName  string `json:"propertyName"`
	PropertyType  string `json:"propertyType"`
	PropertyValue string `json:"propertyValue"`
}

// ImportReport represents the resource server's import result. The
// response JSON is parsed best-effort for diagnostics; unknown shapes
// leave only the raw body populated.
type ImportReport struct {
	Code    string `json:"code,omitempty"`
	Version string `json:"version,omitempty"`
	Status  string `json:"status,omitempty"`
	// RawBody holds a truncated copy of the response for diagnostics.
	RawBody string `json:"-"`
}

// AccessToken is an alias to the shared type in pkg/types
type AccessToken = types.AccessToken

// ClientError is an alias to the shared type in pkg/types
type ClientError = types.ClientError

// Error codes re-exported for callers of the SDK surface
const (
	ErrCodeConfigurationError     = types.ErrCodeConfigurationError
	ErrCodeInvalidKeyMaterial     = types.ErrCodeInvalidKeyMaterial
	ErrCodeSigningFailure         = types.ErrCodeSigningFailure
	ErrCodeAuthenticationRejected = types.ErrCodeAuthenticationRejected
	ErrCodeNetworkError           = types.ErrCodeNetworkError
	ErrCodeArtifactNotFound       = types.ErrCodeArtifactNotFound
	ErrCodeExportFailed           = types.ErrCodeExportFailed
	ErrCodeEmptyArtifact          = types.ErrCodeEmptyArtifact
	ErrCodeImportRejected         = types.ErrCodeImportRejected
	ErrCodePropertyUpdateFailed   = types.ErrCodePropertyUpdateFailed
	ErrCodeActivationFailed       = types.ErrCodeActivationFailed
)

// IsClientError checks if an error is a ClientError
func IsClientError(err error) bool {
	return types.IsClientError(err)
}

// GetClientError returns the ClientError if the error is a ClientError
func GetClientError(err error) *ClientError {
	return types.GetClientError(err)
}
