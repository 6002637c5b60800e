package gateway

import (
	"context"
	"time"

	"github.com/haasonsaas/claudebridge/internal/adapter"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// Stream runs one streaming completion, handing each chunk to send in order:
// a role chunk first, then content and tool-call chunks as deltas arrive,
// then a final chunk carrying finish_reason and usage.
//
// Errors before the first chunk are returned so the caller can write an
// ordinary HTTP error body. Once streaming has begun, runtime failures are
// delivered in band as a terminal frame with finish_reason "error" and Stream
// returns nil; send failures (a gone client) cancel the runtime call and are
// returned as-is.
func (s *Service) Stream(ctx context.Context, req *openai.ChatCompletionRequest, send func(*openai.ChatCompletionChunk) error) error {
	started := time.Now()
	ex, err := s.prepare(ctx, req)
	if err != nil {
		s.reject(ctx, err)
		return err
	}

	ctx, cancel := s.boundContext(ctx)
	defer cancel()
	ctx = s.annotate(ctx, ex)

	ctx, span := s.tracer.TraceCompletion(ctx, ex.model, "stream")
	defer span.End()

	runCtx, runSpan := s.tracer.TraceRuntimeInvocation(ctx, s.backend, ex.model)
	defer runSpan.End()
	rs, err := s.runtime.RunCompletion(runCtx, ex.runReq)
	if err != nil {
		s.metrics.RecordRuntimeInvocation(s.backend, "error")
		s.tracer.RecordError(runSpan, err)
		s.recordFailure(ctx, ex, "stream", started, err)
		return err
	}

	asm := adapter.NewAssembler(ex.model, ex.sessionID)
	if err := send(asm.RoleChunk()); err != nil {
		// The deferred cancel kills the runtime call on the way out.
		return err
	}

	var sendErr error
drain:
	for ev := range rs.Events() {
		for _, delta := range asm.Observe(ev) {
			s.metrics.RecordChunk(ex.model)
			if err := send(asm.Chunk(delta)); err != nil {
				sendErr = err
				cancel()
				break drain
			}
		}
	}
	if sendErr != nil {
		s.recordFailure(ctx, ex, "stream", started, sendErr)
		return sendErr
	}

	if err := s.terminalError(rs, asm, ex.model); err != nil {
		s.metrics.RecordRuntimeInvocation(s.backend, "error")
		s.tracer.RecordError(runSpan, err)
		s.recordFailure(ctx, ex, "stream", started, err)
		// Streaming already began, so the failure travels in band.
		return send(asm.ErrorChunk())
	}
	s.metrics.RecordRuntimeInvocation(s.backend, "ok")

	if err := send(asm.FinalChunk()); err != nil {
		return err
	}
	s.appendAssistantTurn(ctx, ex, asm)
	s.recordSuccess(ctx, ex, asm, "stream", started)
	return nil
}
