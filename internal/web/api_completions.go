package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// handleChatCompletions serves POST /v1/chat/completions in both buffered
// and SSE streaming form.
func (h *Handler) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r)
		return
	}

	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeWireError(w, r, errInvalidJSON(err))
		return
	}

	if req.Stream {
		h.streamCompletion(w, r, &req)
		return
	}

	resp, err := h.config.Gateway.Complete(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// streamCompletion drives one SSE response: a role chunk first, content and
// tool-call chunks as they arrive, a final chunk with finish_reason and
// usage, then the [DONE] marker. Failures before the first chunk fall back
// to an ordinary HTTP error body; once streaming has begun the gateway
// delivers failures in band as a finish_reason "error" frame.
func (h *Handler) streamCompletion(w http.ResponseWriter, r *http.Request, req *openai.ChatCompletionRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeWireError(w, r, wireError{
			status:  http.StatusInternalServerError,
			errType: openai.ErrTypeInternal,
			code:    "streaming_unsupported",
			message: "Streaming is not supported on this connection.",
		})
		return
	}

	streaming := false
	send := func(chunk *openai.ChatCompletionChunk) error {
		if !streaming {
			writeSSEHeaders(w)
			streaming = true
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := h.config.Gateway.Stream(r.Context(), req, send); err != nil {
		if !streaming {
			h.writeError(w, r, err)
			return
		}
		// Mid-stream send failure: the client is gone, nothing to write.
		h.config.Logger.Debug(r.Context(), "stream aborted", "error", err)
		return
	}

	if streaming {
		if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err == nil {
			flusher.Flush()
		}
	}
}

// writeSSEHeaders commits the response to the SSE wire format.
func writeSSEHeaders(w http.ResponseWriter) {
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
}
