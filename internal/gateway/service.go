// Package gateway turns OpenAI chat completion requests into Claude runtime
// calls. It owns request validation, session plumbing, and the assembly of
// OpenAI-shaped responses; transport concerns stay in internal/web.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/claudebridge/internal/adapter"
	"github.com/haasonsaas/claudebridge/internal/auth"
	"github.com/haasonsaas/claudebridge/internal/claude"
	"github.com/haasonsaas/claudebridge/internal/observability"
	"github.com/haasonsaas/claudebridge/internal/registry"
	"github.com/haasonsaas/claudebridge/internal/sessions"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// InvalidRequestError reports a request missing a required field or carrying
// a value outside the accepted range.
type InvalidRequestError struct {
	Param   string
	Message string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// ModelError reports a request naming a model the registry does not know.
// Validation carries the ranked suggestions surfaced in the error body.
type ModelError struct {
	Model      string
	Validation *registry.ValidationResult
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %q is not supported", e.Model)
}

// Config wires the service's collaborators and request policy.
type Config struct {
	Runtime  claude.Runtime
	Sessions *sessions.Store
	Catalog  *registry.Catalog
	// Resolver supplies the credential env overlay for runtime calls.
	// Optional; nil means the runtime inherits the server environment.
	Resolver *auth.Resolver

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer

	// Backend labels runtime metrics and classified errors ("cli" or "sdk").
	Backend string
	// DefaultModel fills in requests that name no model.
	DefaultModel string
	// MaxTurns caps agentic turns when neither the request nor the session
	// sets one. Zero leaves the runtime's own default in place.
	MaxTurns int
	// RequestTimeout bounds one completion end to end. Zero disables it.
	RequestTimeout time.Duration
}

// Service runs chat completions against a Claude runtime.
type Service struct {
	runtime  claude.Runtime
	sessions *sessions.Store
	catalog  *registry.Catalog
	resolver *auth.Resolver

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	backend        string
	defaultModel   string
	maxTurns       int
	requestTimeout time.Duration
}

// NewService builds a Service from cfg. Runtime, Sessions and Catalog are
// required; the observability fields default to inert implementations.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{Level: "error", Output: io.Discard})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsWith(prometheus.NewRegistry())
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer, _ = observability.NewTracer(observability.TraceConfig{ServiceName: "claudebridge"})
	}
	backend := cfg.Backend
	if backend == "" {
		backend = "cli"
	}
	return &Service{
		runtime:        cfg.Runtime,
		sessions:       cfg.Sessions,
		catalog:        cfg.Catalog,
		resolver:       cfg.Resolver,
		logger:         logger,
		metrics:        metrics,
		tracer:         tracer,
		backend:        backend,
		defaultModel:   cfg.DefaultModel,
		maxTurns:       cfg.MaxTurns,
		requestTimeout: cfg.RequestTimeout,
	}
}

// exchange carries the resolved inputs of one completion call.
type exchange struct {
	model     string
	sessionID string
	runReq    claude.Request
}

// Complete runs one non-streaming completion: validate, merge session
// history, invoke the runtime, drain it to exhaustion, and persist the
// assistant turn.
func (s *Service) Complete(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletion, error) {
	started := time.Now()
	ex, err := s.prepare(ctx, req)
	if err != nil {
		s.reject(ctx, err)
		return nil, err
	}

	ctx, cancel := s.boundContext(ctx)
	defer cancel()
	ctx = s.annotate(ctx, ex)

	ctx, span := s.tracer.TraceCompletion(ctx, ex.model, "sync")
	defer span.End()

	asm, err := s.runToCompletion(ctx, ex)
	if err != nil {
		s.tracer.RecordError(span, err)
		s.recordFailure(ctx, ex, "sync", started, err)
		return nil, err
	}

	s.appendAssistantTurn(ctx, ex, asm)
	s.recordSuccess(ctx, ex, asm, "sync", started)
	return asm.Completion(), nil
}

// runToCompletion spawns the runtime call and drains it to exhaustion. The
// runtime span and invocation metric cover spawn through terminal event.
func (s *Service) runToCompletion(ctx context.Context, ex *exchange) (*adapter.Assembler, error) {
	ctx, span := s.tracer.TraceRuntimeInvocation(ctx, s.backend, ex.model)
	defer span.End()

	rs, err := s.runtime.RunCompletion(ctx, ex.runReq)
	if err != nil {
		s.metrics.RecordRuntimeInvocation(s.backend, "error")
		s.tracer.RecordError(span, err)
		return nil, err
	}

	asm := adapter.NewAssembler(ex.model, ex.sessionID)
	for ev := range rs.Events() {
		asm.Observe(ev)
	}
	if err := s.terminalError(rs, asm, ex.model); err != nil {
		s.metrics.RecordRuntimeInvocation(s.backend, "error")
		s.tracer.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordRuntimeInvocation(s.backend, "ok")
	return asm, nil
}

// prepare validates the request and resolves model, session history, system
// prompt and tools into a runtime request.
func (s *Service) prepare(ctx context.Context, req *openai.ChatCompletionRequest) (*exchange, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &InvalidRequestError{Param: "messages", Message: "at least one message is required"}
	}
	s.noteIgnoredParams(ctx, req)

	history := req.Messages
	sessionID := strings.TrimSpace(req.SessionID)
	var sess *sessions.Session
	if sessionID != "" {
		history, sessionID = s.sessions.Process(req.Messages, sessionID)
		if got, err := s.sessions.Get(sessionID); err == nil {
			sess = got
		}
	}

	model := req.Model
	if model == "" && sess != nil {
		model = sess.Model
	}
	if model == "" {
		model = s.defaultModel
	}
	resolved, ok := s.catalog.Get(model)
	if !ok {
		return nil, &ModelError{Model: model, Validation: s.catalog.Validate(model)}
	}
	model = resolved.ID

	var tools []claude.ToolSpec
	if req.EnableTools && len(req.Tools) > 0 {
		if err := adapter.ValidateTools(req.Tools, req.ToolChoice); err != nil {
			return nil, err
		}
		tools = adapter.RuntimeTools(req.Tools, req.ToolChoice)
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" && sess != nil {
		systemPrompt = sess.SystemPrompt
	}
	prompt, system, err := adapter.Forward(history, systemPrompt)
	if err != nil {
		return nil, err
	}

	maxTurns := req.MaxTurns
	if maxTurns <= 0 && sess != nil {
		maxTurns = sess.MaxTurns
	}
	if maxTurns <= 0 {
		maxTurns = s.maxTurns
	}

	var overlay map[string]string
	if s.resolver != nil {
		overlay = s.resolver.EnvOverlay()
	}

	return &exchange{
		model:     model,
		sessionID: sessionID,
		runReq: claude.Request{
			Prompt:       prompt,
			SystemPrompt: system,
			Model:        model,
			MaxTurns:     maxTurns,
			Tools:        tools,
			Env:          overlay,
		},
	}, nil
}

// noteIgnoredParams logs sampling parameters the Claude runtimes cannot
// honor. They are accepted for client compatibility and dropped.
func (s *Service) noteIgnoredParams(ctx context.Context, req *openai.ChatCompletionRequest) {
	var ignored []string
	if req.Temperature != nil {
		ignored = append(ignored, "temperature")
	}
	if req.MaxTokens > 0 {
		ignored = append(ignored, "max_tokens")
	}
	if len(ignored) > 0 {
		s.logger.Debug(ctx, "ignoring unsupported request parameters", "params", strings.Join(ignored, ","))
	}
}

// terminalError reports why a drained stream failed, nil on a clean result.
// A missing terminal result and an error-flagged result both classify as
// runtime errors so the HTTP layer can map them by kind.
func (s *Service) terminalError(rs *claude.Stream, asm *adapter.Assembler, model string) error {
	if err := rs.Err(); err != nil {
		if claude.GetRuntimeError(err) != nil {
			return err
		}
		return claude.NewRuntimeError(s.backend, model, err)
	}
	res := asm.Result()
	if res == nil {
		return claude.NewRuntimeError(s.backend, model, errors.New("runtime stream ended without a result"))
	}
	if !res.IsError {
		return nil
	}
	msg := strings.TrimSpace(res.ErrorText)
	if msg == "" {
		msg = "runtime reported an error result"
	}
	return claude.NewRuntimeError(s.backend, model, errors.New(msg))
}

// appendAssistantTurn persists the assistant reply onto the session. Skipped
// for stateless requests and after cancellation; failures are logged, not
// surfaced, because the client already holds the completion.
func (s *Service) appendAssistantTurn(ctx context.Context, ex *exchange, asm *adapter.Assembler) {
	if ex.sessionID == "" || ctx.Err() != nil {
		return
	}
	if _, err := s.sessions.Append(ex.sessionID, []openai.Message{asm.AssistantMessage()}); err != nil {
		s.logger.Warn(ctx, "failed to append assistant turn", "error", err)
	}
}

// boundContext applies the configured per-request timeout.
func (s *Service) boundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}

// annotate attaches the resolved model and session to the context so every
// log line on this request carries them.
func (s *Service) annotate(ctx context.Context, ex *exchange) context.Context {
	ctx = observability.AddModel(ctx, ex.model)
	if ex.sessionID != "" {
		ctx = observability.AddSessionID(ctx, ex.sessionID)
	}
	return ctx
}

func (s *Service) reject(ctx context.Context, err error) {
	s.metrics.RecordError("gateway", errorLabel(err))
	s.logger.Debug(ctx, "rejected completion request", "error", err)
}

func (s *Service) recordSuccess(ctx context.Context, ex *exchange, asm *adapter.Assembler, mode string, started time.Time) {
	usage := asm.Usage()
	elapsed := time.Since(started)
	s.metrics.RecordCompletion(ex.model, mode, "ok", elapsed.Seconds(), usage.PromptTokens, usage.CompletionTokens)
	s.logger.Info(ctx, "completion finished",
		"mode", mode,
		"finish_reason", string(asm.FinishReason()),
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func (s *Service) recordFailure(ctx context.Context, ex *exchange, mode string, started time.Time, err error) {
	elapsed := time.Since(started)
	s.metrics.RecordCompletion(ex.model, mode, "error", elapsed.Seconds(), 0, 0)
	s.metrics.RecordError("gateway", errorLabel(err))
	s.logger.Error(ctx, "completion failed",
		"mode", mode,
		"error", err,
		"duration_ms", elapsed.Milliseconds(),
	)
}

// errorLabel maps an error to a low-cardinality metrics label.
func errorLabel(err error) string {
	var ve *adapter.ValidationError
	var ire *InvalidRequestError
	var me *ModelError
	switch {
	case errors.As(err, &ve), errors.As(err, &ire):
		return "validation"
	case errors.As(err, &me):
		return "model"
	}
	if re := claude.GetRuntimeError(err); re != nil {
		return string(re.Kind)
	}
	return string(claude.ClassifyError(err))
}
