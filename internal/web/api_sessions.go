package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/haasonsaas/claudebridge/internal/sessions"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// sessionView is the wire representation of a stored session. Timestamps are
// ISO-8601 UTC with millisecond precision; Messages appears only on
// single-session responses, and only once the session has any.
type sessionView struct {
	SessionID      string           `json:"session_id"`
	Model          string           `json:"model,omitempty"`
	SystemPrompt   string           `json:"system_prompt,omitempty"`
	MaxTurns       int              `json:"max_turns,omitempty"`
	CreatedAt      string           `json:"created_at"`
	LastAccessedAt string           `json:"last_accessed_at"`
	ExpiresAt      string           `json:"expires_at"`
	MessageCount   int              `json:"message_count"`
	Messages       []openai.Message `json:"messages,omitempty"`
}

func newSessionView(sess *sessions.Session, withMessages bool) sessionView {
	view := sessionView{
		SessionID:      sess.ID,
		Model:          sess.Model,
		SystemPrompt:   sess.SystemPrompt,
		MaxTurns:       sess.MaxTurns,
		CreatedAt:      wireTime(sess.CreatedAt),
		LastAccessedAt: wireTime(sess.LastAccessedAt),
		ExpiresAt:      wireTime(sess.ExpiresAt),
		MessageCount:   sess.MessageCount(),
	}
	if withMessages {
		view.Messages = sess.Messages
	}
	return view
}

type appendMessagesRequest struct {
	Messages []openai.Message `json:"messages"`
}

// handleSessions serves the collection: GET lists live sessions, POST
// creates one explicitly.
func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listSessions(w, r)
	case http.MethodPost:
		h.createSession(w, r)
	default:
		h.methodNotAllowed(w, r)
	}
}

// handleSession routes session-scoped calls: the stats endpoint, the message
// append endpoint, and per-id get/patch/delete.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	if path == "" {
		h.writeWireError(w, r, missingSessionID())
		return
	}
	parts := strings.Split(path, "/")
	sessionID := parts[0]

	if sessionID == "stats" && len(parts) == 1 {
		h.sessionStats(w, r)
		return
	}
	if len(parts) == 2 && parts[1] == "messages" {
		h.appendSessionMessages(w, r, sessionID)
		return
	}
	if len(parts) > 1 {
		h.writeWireError(w, r, errRouteNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getSession(w, r, sessionID)
	case http.MethodPatch:
		h.patchSession(w, r, sessionID)
	case http.MethodDelete:
		h.deleteSession(w, r, sessionID)
	default:
		h.methodNotAllowed(w, r)
	}
}

// listSessions handles GET /v1/sessions. Expired sessions never appear even
// before the reaper's next sweep.
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	live := h.config.Sessions.List()
	views := make([]sessionView, 0, len(live))
	for _, sess := range live {
		views = append(views, newSessionView(sess, false))
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"sessions": views,
		"total":    len(views),
	})
}

// createSession handles POST /v1/sessions. The body is optional; an absent
// session_id asks the store to generate one.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessions.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeWireError(w, r, errInvalidJSON(err))
		return
	}
	sess := h.config.Sessions.Create(req)
	h.config.Logger.Info(r.Context(), "session created", "session_id", sess.ID)
	h.jsonResponse(w, http.StatusCreated, newSessionView(sess, true))
}

// sessionStats handles GET /v1/sessions/stats. Stats are a derived view:
// repeated calls without intervening writes return identical values.
func (h *Handler) sessionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	h.jsonResponse(w, http.StatusOK, h.config.Sessions.Stats())
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.config.Sessions.Get(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, newSessionView(sess, true))
}

func (h *Handler) patchSession(w http.ResponseWriter, r *http.Request, id string) {
	var patch sessions.UpdateRequest
	if err := decodeBody(r, &patch); err != nil {
		h.writeWireError(w, r, errInvalidJSON(err))
		return
	}
	sess, err := h.config.Sessions.Update(id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, newSessionView(sess, true))
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.config.Sessions.Delete(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.config.Logger.Info(r.Context(), "session deleted", "session_id", id)
	h.jsonResponse(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted successfully", id),
	})
}

// appendSessionMessages handles POST /v1/sessions/{id}/messages. The session
// is created if absent; an empty messages array still touches it.
func (h *Handler) appendSessionMessages(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r)
		return
	}

	var req appendMessagesRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeWireError(w, r, errInvalidJSON(err))
		return
	}
	for i, msg := range req.Messages {
		if !msg.Role.Valid() {
			h.writeWireError(w, r, errValidation(
				fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("invalid role %q", msg.Role),
			))
			return
		}
		if msg.Role == openai.RoleTool && msg.ToolCallID == "" {
			h.writeWireError(w, r, errValidation(
				fmt.Sprintf("messages[%d].tool_call_id", i),
				"tool messages must reference a tool_call_id",
			))
			return
		}
	}

	sess, err := h.config.Sessions.Append(id, req.Messages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	messages := sess.Messages
	if messages == nil {
		messages = []openai.Message{}
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"session_id":    sess.ID,
		"message_count": sess.MessageCount(),
		"messages":      messages,
	})
}

func missingSessionID() wireError {
	return wireError{
		status:  http.StatusBadRequest,
		errType: openai.ErrTypeValidation,
		code:    "missing_session_id",
		message: "Session id is required.",
		details: validationDetails(nil),
	}
}

// decodeBody parses a JSON request body into dst. An empty body is allowed
// and leaves dst at its zero value.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
