package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes a runtime failure. The web layer maps kinds onto
// HTTP statuses and wire error types.
type ErrorKind string

const (
	// ErrKindAuth means the upstream rejected our credentials.
	ErrKindAuth ErrorKind = "auth"
	// ErrKindBilling means a quota or credit problem upstream.
	ErrKindBilling ErrorKind = "billing"
	// ErrKindRateLimit means the upstream is throttling or overloaded.
	ErrKindRateLimit ErrorKind = "rate_limit"
	// ErrKindTimeout means the completion exceeded its deadline.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindCancelled means the caller abandoned the request.
	ErrKindCancelled ErrorKind = "cancelled"
	// ErrKindModel means the upstream does not recognize the model.
	ErrKindModel ErrorKind = "model"
	// ErrKindSpawn means the backend process could not be started.
	ErrKindSpawn ErrorKind = "spawn"
	// ErrKindProtocol means the backend produced output we could not
	// frame or parse.
	ErrKindProtocol ErrorKind = "protocol"
	// ErrKindUpstream means the upstream failed in a generic way.
	ErrKindUpstream ErrorKind = "upstream"
	// ErrKindUnknown is the fallback when nothing else matches.
	ErrKindUnknown ErrorKind = "unknown"
)

// RuntimeError wraps a backend failure with enough context to map it onto
// the wire and to log it usefully.
type RuntimeError struct {
	Kind      ErrorKind
	Backend   string
	Model     string
	Status    int
	Code      string
	Message   string
	RequestID string
	Stderr    string
	Cause     error
}

func (e *RuntimeError) Error() string {
	parts := []string{fmt.Sprintf("[%s]", e.Kind)}
	if e.Backend != "" {
		parts = append(parts, e.Backend)
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// NewRuntimeError wraps cause, classifying it from its message and any
// context sentinel it carries.
func NewRuntimeError(backend, model string, cause error) *RuntimeError {
	return &RuntimeError{
		Kind:    ClassifyError(cause),
		Backend: backend,
		Model:   model,
		Cause:   cause,
	}
}

// WithKind overrides the classification.
func (e *RuntimeError) WithKind(kind ErrorKind) *RuntimeError {
	e.Kind = kind
	return e
}

// WithStatus records the upstream HTTP status and reclassifies from it.
func (e *RuntimeError) WithStatus(status int) *RuntimeError {
	e.Status = status
	if kind := classifyStatusCode(status); kind != ErrKindUnknown {
		e.Kind = kind
	}
	return e
}

// WithCode records the upstream error code and reclassifies from it.
func (e *RuntimeError) WithCode(code string) *RuntimeError {
	e.Code = code
	if kind := classifyErrorCode(code); kind != ErrKindUnknown {
		e.Kind = kind
	}
	return e
}

// WithMessage records a human-readable upstream message.
func (e *RuntimeError) WithMessage(msg string) *RuntimeError {
	e.Message = msg
	return e
}

// WithRequestID records the upstream request id.
func (e *RuntimeError) WithRequestID(id string) *RuntimeError {
	e.RequestID = id
	return e
}

// WithStderr attaches a bounded tail of process stderr.
func (e *RuntimeError) WithStderr(stderr string) *RuntimeError {
	e.Stderr = stderr
	return e
}

// ClassifyError maps an error to a kind using context sentinels first,
// then message substrings.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrKindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrKindCancelled
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return ErrKindTimeout
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "overloaded") || strings.Contains(msg, "too many requests"):
		return ErrKindRateLimit
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "invalid x-api-key") || strings.Contains(msg, "api key") ||
		strings.Contains(msg, "forbidden") || strings.Contains(msg, "oauth"):
		return ErrKindAuth
	case strings.Contains(msg, "credit") || strings.Contains(msg, "billing") ||
		strings.Contains(msg, "quota") || strings.Contains(msg, "payment"):
		return ErrKindBilling
	case strings.Contains(msg, "model not found") || strings.Contains(msg, "invalid model") ||
		strings.Contains(msg, "unknown model"):
		return ErrKindModel
	case strings.Contains(msg, "executable file not found") || strings.Contains(msg, "no such file") ||
		strings.Contains(msg, "permission denied"):
		return ErrKindSpawn
	case strings.Contains(msg, "unexpected end of json") || strings.Contains(msg, "invalid character") ||
		strings.Contains(msg, "token too long"):
		return ErrKindProtocol
	case strings.Contains(msg, "internal server error") || strings.Contains(msg, "bad gateway") ||
		strings.Contains(msg, "service unavailable") || strings.Contains(msg, "api_error"):
		return ErrKindUpstream
	default:
		return ErrKindUnknown
	}
}

func classifyStatusCode(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrKindAuth
	case status == 402:
		return ErrKindBilling
	case status == 404:
		return ErrKindModel
	case status == 408:
		return ErrKindTimeout
	case status == 429 || status == 529:
		return ErrKindRateLimit
	case status >= 500:
		return ErrKindUpstream
	default:
		return ErrKindUnknown
	}
}

func classifyErrorCode(code string) ErrorKind {
	switch code {
	case "authentication_error", "permission_error":
		return ErrKindAuth
	case "billing_error", "insufficient_quota":
		return ErrKindBilling
	case "rate_limit_error", "overloaded_error":
		return ErrKindRateLimit
	case "timeout_error":
		return ErrKindTimeout
	case "not_found_error":
		return ErrKindModel
	case "api_error":
		return ErrKindUpstream
	default:
		return ErrKindUnknown
	}
}

// IsRuntimeError reports whether err wraps a RuntimeError.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// GetRuntimeError extracts the RuntimeError from err's chain, or nil.
func GetRuntimeError(err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re
	}
	return nil
}
