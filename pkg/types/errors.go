package types

import "fmt"

// ClientError represents a typed failure from the promotion client
type ClientError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// StatusCode is the HTTP status of the failing response, 0 when the
	// failure happened before a response was received.
	StatusCode int `json:"statusCode,omitempty"`
	// Body holds a truncated prefix of the response body for diagnostics.
	Body string `json:"body,omitempty"`
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for the client taxonomy. The first two are client-side and
// fatal; NETWORK_ERROR is possibly transient and retryable by the caller;
// the rest are resource-side and need operator intervention.
const (
	ErrCodeConfigurationError     = "CONFIGURATION_ERROR"
	ErrCodeInvalidKeyMaterial     = "INVALID_KEY_MATERIAL"
	ErrCodeSigningFailure         = "SIGNING_FAILURE"
	ErrCodeAuthenticationRejected = "AUTHENTICATION_REJECTED"
	ErrCodeNetworkError           = "NETWORK_ERROR"
	ErrCodeArtifactNotFound       = "ARTIFACT_NOT_FOUND"
	ErrCodeExportFailed           = "EXPORT_FAILED"
	ErrCodeEmptyArtifact          = "EMPTY_ARTIFACT"
	ErrCodeImportRejected         = "IMPORT_REJECTED"
	ErrCodePropertyUpdateFailed   = "PROPERTY_UPDATE_FAILED"
	ErrCodeActivationFailed       = "ACTIVATION_FAILED"
)

// maxBodyPrefix bounds how much of a response body is kept on an error.
const maxBodyPrefix = 512

// NewClientError creates a new client error
func NewClientError(code, message string) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
	}
}

// NewHTTPError creates a client error carrying the HTTP status and a
// truncated copy of the response body
func NewHTTPError(code, message string, statusCode int, body []byte) *ClientError {
	return &ClientError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Body:       TruncateBody(body),
	}
}

// TruncateBody returns a diagnostic prefix of a response body
func TruncateBody(body []byte) string {
	if len(body) > maxBodyPrefix {
		return string(body[:maxBodyPrefix]) + "..."
	}
	return string(body)
}

// IsClientError checks if an error is a ClientError
func IsClientError(err error) bool {
	_, ok := err.(*ClientError)
	return ok
}

// GetClientError returns the ClientError if the error is a ClientError
func GetClientError(err error) *ClientError {
	if clientErr, ok := err.(*ClientError); ok {
		return clientErr
	}
	return nil
}

// CodeOf returns the error code of a ClientError, or "" for other errors
func CodeOf(err error) string {
	if clientErr, ok := err.(*ClientError); ok {
		return clientErr.Code
	}
	return ""
}

// IsRetryable reports whether the error is a possibly-transient network
// failure that the caller may retry. Resource-side and client-side
// failures are never retryable without operator intervention.
func IsRetryable(err error) bool {
	return CodeOf(err) == ErrCodeNetworkError
}
