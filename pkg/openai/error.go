package openai

// ErrorType is the coarse error classification exposed on the wire.
type ErrorType string

const (
	ErrTypeValidation     ErrorType = "validation_error"
	ErrTypeAuthentication ErrorType = "authentication_error"
	ErrTypeNotFound       ErrorType = "not_found_error"
	ErrTypeModel          ErrorType = "model_error"
	ErrTypeUpstream       ErrorType = "upstream_error"
	ErrTypeTimeout        ErrorType = "timeout_error"
	ErrTypeInternal       ErrorType = "internal_error"
)

// ErrorBody is the inner object of every error response. Code is stable
// across releases; Message is human-readable and may change.
type ErrorBody struct {
	Type      ErrorType      `json:"type"`
	Message   string         `json:"message"`
	Code      string         `json:"code"`
	RequestID string         `json:"request_id"`
	Details   map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the envelope for every non-2xx body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
