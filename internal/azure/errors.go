package azure

import "fmt"

// Error codes carried by APIError for failures that are detected before or
// instead of a successful query.
const (
	ErrCodeInvalidDateRange  = "InvalidDateRange"
	ErrCodeInvalidDateFormat = "InvalidDateFormat"
	ErrCodeInvalidServices   = "InvalidServices"
)

// AuthenticationError indicates a credential or token failure, either while
// acquiring a token or when the API rejects the one we hold.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error: %s", e.Message)
}

// RequestError indicates an HTTP-layer failure: a non-retryable status, or
// retries exhausted. StatusCode is zero when the failure never produced a
// status (connection errors, timeouts).
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request error: %s", e.Message)
}

// APIError is a client-side validation failure that never reaches the
// network, tagged with the same codes the provider uses in its error
// envelope so callers can branch on them.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
