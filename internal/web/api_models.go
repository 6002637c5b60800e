package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/claudebridge/internal/registry"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// handleModels serves GET /v1/models. The capabilities and metadata query
// flags opt into the gateway's extended model fields.
func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	withCaps := boolParam(r, "capabilities")
	withMeta := boolParam(r, "metadata")

	models := h.config.Catalog.List()
	data := make([]openai.ModelInfo, 0, len(models))
	for _, m := range models {
		data = append(data, modelInfo(m, withCaps, withMeta))
	}
	h.jsonResponse(w, http.StatusOK, openai.ModelList{
		Object: openai.ObjectList,
		Data:   data,
	})
}

// handleModel routes model-scoped calls: validate, per-id get, and the
// capabilities endpoint. Aliases resolve to their canonical model.
func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/models/")
	if path == "" {
		h.writeWireError(w, r, errRouteNotFound)
		return
	}
	parts := strings.Split(path, "/")
	modelID := parts[0]

	if modelID == "validate" && len(parts) == 1 {
		h.validateModel(w, r)
		return
	}
	if len(parts) == 2 && parts[1] == "capabilities" {
		h.modelCapabilities(w, r, modelID)
		return
	}
	if len(parts) > 1 {
		h.writeWireError(w, r, errRouteNotFound)
		return
	}
	h.getModel(w, r, modelID)
}

func (h *Handler) getModel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	model, ok := h.config.Catalog.Get(id)
	if !ok {
		h.writeWireError(w, r, unknownModel(h.config.Catalog, id))
		return
	}
	h.jsonResponse(w, http.StatusOK, modelInfo(model, boolParam(r, "capabilities"), boolParam(r, "metadata")))
}

// validateModel handles POST /v1/models/validate: 200 with the validation
// result for known models, 400 with the same shape (suggestions and
// alternatives included) for unknown ones.
func (h *Handler) validateModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r)
		return
	}
	var req struct {
		Model string `json:"model"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.writeWireError(w, r, errInvalidJSON(err))
		return
	}

	result := h.config.Catalog.Validate(req.Model)
	status := http.StatusOK
	if !result.Valid {
		status = http.StatusBadRequest
	}
	h.jsonResponse(w, status, result)
}

// modelCapabilities handles GET /v1/models/{id}/capabilities.
func (h *Handler) modelCapabilities(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	start := time.Now()
	model, ok := h.config.Catalog.Get(id)
	if !ok {
		h.writeWireError(w, r, unknownModel(h.config.Catalog, id))
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"model":          model.ID,
		"capabilities":   model.CapabilityMap(),
		"lookup_time_ms": float64(time.Since(start).Microseconds()) / 1000.0,
	})
}

// unknownModel builds the 404 body for a model id the catalog does not know,
// with ranked suggestions and the active alternatives.
func unknownModel(catalog *registry.Catalog, id string) wireError {
	validation := catalog.Validate(id)
	return wireError{
		status:  http.StatusNotFound,
		errType: openai.ErrTypeNotFound,
		code:    "model_not_found",
		message: fmt.Sprintf("model %q is not supported", id),
		details: map[string]any{
			"suggestions":        validation.Suggestions,
			"alternative_models": validation.AlternativeModels,
		},
	}
}

// modelInfo shapes a catalog model for the wire.
func modelInfo(m *registry.Model, withCaps, withMeta bool) openai.ModelInfo {
	info := openai.ModelInfo{
		ID:      m.ID,
		Object:  openai.ObjectModel,
		Created: m.CreatedUnix(),
		OwnedBy: "anthropic",
		Aliases: m.Aliases,
	}
	if withCaps {
		info.Capabilities = m.CapabilityMap()
	}
	if withMeta {
		info.Metadata = m.MetadataMap()
	}
	return info
}
