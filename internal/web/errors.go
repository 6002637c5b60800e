package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/haasonsaas/claudebridge/internal/adapter"
	"github.com/haasonsaas/claudebridge/internal/claude"
	"github.com/haasonsaas/claudebridge/internal/gateway"
	"github.com/haasonsaas/claudebridge/internal/observability"
	"github.com/haasonsaas/claudebridge/internal/sessions"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// statusClientClosedRequest mirrors the nginx convention for a client that
// went away before the response could be written.
const statusClientClosedRequest = 499

// wireError is a resolved HTTP error: the status plus the stable body fields.
// Every error body the gateway emits is produced from one of these.
type wireError struct {
	status  int
	errType openai.ErrorType
	code    string
	message string
	details map[string]any
}

var errRouteNotFound = wireError{
	status:  http.StatusNotFound,
	errType: openai.ErrTypeNotFound,
	code:    "not_found",
	message: "The requested resource was not found.",
}

// errInvalidJSON reports an unparseable request body.
func errInvalidJSON(err error) wireError {
	return wireError{
		status:  http.StatusBadRequest,
		errType: openai.ErrTypeValidation,
		code:    "invalid_json",
		message: "Invalid request body: " + err.Error(),
		details: validationDetails(nil),
	}
}

// errValidation reports a well-formed body that fails semantic validation.
func errValidation(param, message string) wireError {
	var extra map[string]any
	if param != "" {
		extra = map[string]any{"param": param}
	}
	return wireError{
		status:  http.StatusUnprocessableEntity,
		errType: openai.ErrTypeValidation,
		code:    "invalid_request",
		message: message,
		details: validationDetails(extra),
	}
}

// writeError classifies err and writes the corresponding error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeWireError(w, r, classify(err))
}

// writeWireError emits the canonical error envelope. Server-side failures are
// additionally logged; the web error counter tracks every emitted error.
func (h *Handler) writeWireError(w http.ResponseWriter, r *http.Request, we wireError) {
	ctx := r.Context()
	if we.status >= http.StatusInternalServerError {
		h.config.Logger.Error(ctx, "request failed",
			"status", we.status,
			"code", we.code,
			"path", r.URL.Path,
		)
	}
	h.config.Metrics.RecordError("web", we.code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(we.status)
	_ = json.NewEncoder(w).Encode(openai.ErrorResponse{
		Error: openai.ErrorBody{
			Type:      we.errType,
			Message:   we.message,
			Code:      we.code,
			RequestID: observability.GetRequestID(ctx),
			Details:   we.details,
		},
	})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeWireError(w, r, wireError{
		status:  http.StatusMethodNotAllowed,
		errType: openai.ErrTypeValidation,
		code:    "method_not_allowed",
		message: fmt.Sprintf("Method %s is not allowed on %s.", r.Method, r.URL.Path),
	})
}

// classify maps a service-layer error onto the wire taxonomy.
func classify(err error) wireError {
	var ire *gateway.InvalidRequestError
	if errors.As(err, &ire) {
		return errValidation(ire.Param, ire.Message)
	}
	var ve *adapter.ValidationError
	if errors.As(err, &ve) {
		return errValidation(ve.Field, ve.Message)
	}

	var me *gateway.ModelError
	if errors.As(err, &me) {
		details := map[string]any{}
		if me.Validation != nil {
			details["suggestions"] = me.Validation.Suggestions
			details["alternative_models"] = me.Validation.AlternativeModels
		}
		return wireError{
			status:  http.StatusBadRequest,
			errType: openai.ErrTypeModel,
			code:    "model_not_found",
			message: err.Error(),
			details: details,
		}
	}

	if errors.Is(err, sessions.ErrNotFound) {
		return wireError{
			status:  http.StatusNotFound,
			errType: openai.ErrTypeNotFound,
			code:    "session_not_found",
			message: "Session not found.",
		}
	}

	if re := claude.GetRuntimeError(err); re != nil {
		return classifyRuntime(re)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return wireError{
			status:  http.StatusGatewayTimeout,
			errType: openai.ErrTypeTimeout,
			code:    "request_timeout",
			message: "The request exceeded the configured timeout.",
		}
	case errors.Is(err, context.Canceled):
		return wireError{
			status:  statusClientClosedRequest,
			errType: openai.ErrTypeInternal,
			code:    "request_cancelled",
			message: "The request was cancelled before completion.",
		}
	}

	return wireError{
		status:  http.StatusInternalServerError,
		errType: openai.ErrTypeInternal,
		code:    "internal_error",
		message: "An internal error occurred.",
	}
}

// classifyRuntime maps runtime failure kinds onto statuses: upstream auth
// problems surface as 502 authentication errors distinguishable from the
// wrapper's own 401s by code.
func classifyRuntime(re *claude.RuntimeError) wireError {
	msg := re.Message
	if msg == "" && re.Cause != nil {
		msg = re.Cause.Error()
	}
	if msg == "" {
		msg = "Claude runtime call failed."
	}

	switch re.Kind {
	case claude.ErrKindAuth:
		return wireError{
			status:  http.StatusBadGateway,
			errType: openai.ErrTypeAuthentication,
			code:    "upstream_auth_failed",
			message: msg,
		}
	case claude.ErrKindBilling:
		return wireError{
			status:  http.StatusBadGateway,
			errType: openai.ErrTypeUpstream,
			code:    "upstream_billing_error",
			message: msg,
		}
	case claude.ErrKindRateLimit:
		return wireError{
			status:  http.StatusBadGateway,
			errType: openai.ErrTypeUpstream,
			code:    "upstream_rate_limited",
			message: msg,
		}
	case claude.ErrKindTimeout:
		return wireError{
			status:  http.StatusGatewayTimeout,
			errType: openai.ErrTypeTimeout,
			code:    "request_timeout",
			message: msg,
		}
	case claude.ErrKindCancelled:
		return wireError{
			status:  statusClientClosedRequest,
			errType: openai.ErrTypeInternal,
			code:    "request_cancelled",
			message: msg,
		}
	case claude.ErrKindModel:
		return wireError{
			status:  http.StatusBadRequest,
			errType: openai.ErrTypeModel,
			code:    "model_not_found",
			message: msg,
		}
	case claude.ErrKindSpawn:
		return wireError{
			status:  http.StatusBadGateway,
			errType: openai.ErrTypeUpstream,
			code:    "runtime_unavailable",
			message: msg,
		}
	case claude.ErrKindProtocol:
		return wireError{
			status:  http.StatusBadGateway,
			errType: openai.ErrTypeUpstream,
			code:    "upstream_protocol_error",
			message: msg,
		}
	case claude.ErrKindUpstream:
		return wireError{
			status:  http.StatusBadGateway,
			errType: openai.ErrTypeUpstream,
			code:    "upstream_error",
			message: msg,
		}
	}

	return wireError{
		status:  http.StatusInternalServerError,
		errType: openai.ErrTypeInternal,
		code:    "internal_error",
		message: msg,
	}
}

// validationDetails builds the details object every validation error carries.
func validationDetails(extra map[string]any) map[string]any {
	details := map[string]any{
		"classification": map[string]any{"category": "validation_error"},
	}
	for k, v := range extra {
		details[k] = v
	}
	return details
}
