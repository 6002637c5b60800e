package web

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/claudebridge/internal/claude/claudetest"
	"github.com/haasonsaas/claudebridge/internal/registry"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

func TestModelsList(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodGet, "/v1/models", nil)
	wantStatus(t, rec, http.StatusOK)

	var list openai.ModelList
	decodeJSON(t, rec, &list)
	if list.Object != openai.ObjectList {
		t.Errorf("object = %q, want %q", list.Object, openai.ObjectList)
	}
	if len(list.Data) != 7 {
		t.Fatalf("len(data) = %d, want 7", len(list.Data))
	}
	// Active flagship models sort first; deprecated ones last.
	if list.Data[0].ID != "claude-opus-4-20250514" {
		t.Errorf("data[0].id = %q, want claude-opus-4-20250514", list.Data[0].ID)
	}
	for _, m := range list.Data {
		if m.Object != openai.ObjectModel {
			t.Errorf("%s: object = %q, want %q", m.ID, m.Object, openai.ObjectModel)
		}
		if m.OwnedBy != "anthropic" {
			t.Errorf("%s: owned_by = %q, want anthropic", m.ID, m.OwnedBy)
		}
		if m.Capabilities != nil {
			t.Errorf("%s: capabilities included without the query flag", m.ID)
		}
	}
}

func TestModelsListWithDetails(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodGet, "/v1/models?capabilities=true&metadata=true", nil)
	wantStatus(t, rec, http.StatusOK)

	var list openai.ModelList
	decodeJSON(t, rec, &list)
	for _, m := range list.Data {
		if m.Capabilities == nil {
			t.Fatalf("%s: missing capabilities", m.ID)
		}
		if got := m.Capabilities["streaming"]; got != true {
			t.Errorf("%s: capabilities.streaming = %v, want true", m.ID, got)
		}
		if m.Metadata == nil {
			t.Fatalf("%s: missing metadata", m.ID)
		}
		if got, _ := m.Metadata["pricing_tier"].(string); got == "" {
			t.Errorf("%s: metadata.pricing_tier missing", m.ID)
		}
	}
}

func TestModelGet(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodGet, "/v1/models/"+testModel, nil)
	wantStatus(t, rec, http.StatusOK)

	var info openai.ModelInfo
	decodeJSON(t, rec, &info)
	if info.ID != testModel {
		t.Errorf("id = %q, want %q", info.ID, testModel)
	}
	wantCreated := time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC).Unix()
	if info.Created != wantCreated {
		t.Errorf("created = %d, want %d", info.Created, wantCreated)
	}
	var hasSonnet bool
	for _, a := range info.Aliases {
		if a == "sonnet" {
			hasSonnet = true
		}
	}
	if !hasSonnet {
		t.Errorf("aliases = %v, want to include sonnet", info.Aliases)
	}
}

func TestModelGetAlias(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodGet, "/v1/models/sonnet", nil)
	wantStatus(t, rec, http.StatusOK)

	var info openai.ModelInfo
	decodeJSON(t, rec, &info)
	if info.ID != testModel {
		t.Errorf("alias resolved to %q, want %q", info.ID, testModel)
	}
}

func TestModelGetUnknown(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodGet, "/v1/models/gpt-4", nil)
	wantStatus(t, rec, http.StatusNotFound)

	body := decodeError(t, rec)
	if body.Type != openai.ErrTypeNotFound {
		t.Errorf("error type = %q, want %q", body.Type, openai.ErrTypeNotFound)
	}
	if body.Code != "model_not_found" {
		t.Errorf("error code = %q, want model_not_found", body.Code)
	}
	suggestions, _ := body.Details["suggestions"].([]any)
	if len(suggestions) == 0 {
		t.Error("details.suggestions empty")
	}
	alternatives, _ := body.Details["alternative_models"].([]any)
	if len(alternatives) != 5 {
		t.Errorf("len(alternative_models) = %d, want 5 active models", len(alternatives))
	}
}

func TestModelValidate(t *testing.T) {
	tests := []struct {
		name         string
		model        string
		wantStatus   int
		wantValid    bool
		wantWarnings int
	}{
		{"canonical id", testModel, http.StatusOK, true, 0},
		{"alias warns", "sonnet", http.StatusOK, true, 1},
		{"deprecated warns", "claude-3-opus-20240229", http.StatusOK, true, 1},
		{"unknown", "gpt-4", http.StatusBadRequest, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, claudetest.New())

			rec := doRequest(t, h, http.MethodPost, "/v1/models/validate",
				map[string]string{"model": tt.model})
			wantStatus(t, rec, tt.wantStatus)

			var result registry.ValidationResult
			decodeJSON(t, rec, &result)
			if result.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", result.Valid, tt.wantValid)
			}
			if result.Model != tt.model {
				t.Errorf("model = %q, want %q", result.Model, tt.model)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", result.Warnings, tt.wantWarnings)
			}
			if !tt.wantValid {
				if len(result.Suggestions) == 0 {
					t.Error("suggestions empty for unknown model")
				}
				if len(result.AlternativeModels) != 5 {
					t.Errorf("len(alternative_models) = %d, want 5", len(result.AlternativeModels))
				}
			}
		})
	}
}

func TestModelValidateDeprecatedPointsAtReplacement(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodPost, "/v1/models/validate",
		map[string]string{"model": "claude-3-opus-20240229"})
	wantStatus(t, rec, http.StatusOK)

	var result registry.ValidationResult
	decodeJSON(t, rec, &result)
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "claude-opus-4-20250514") {
		t.Errorf("warnings = %v, want replacement pointer", result.Warnings)
	}
}

func TestModelCapabilities(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodGet, "/v1/models/sonnet/capabilities", nil)
	wantStatus(t, rec, http.StatusOK)

	var resp struct {
		Model        string         `json:"model"`
		Capabilities map[string]any `json:"capabilities"`
		LookupTimeMS float64        `json:"lookup_time_ms"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Model != testModel {
		t.Errorf("model = %q, want canonical %q", resp.Model, testModel)
	}
	if got := resp.Capabilities["tools"]; got != true {
		t.Errorf("capabilities.tools = %v, want true", got)
	}
	if got := resp.Capabilities["max_context_length"]; got != float64(200000) {
		t.Errorf("capabilities.max_context_length = %v, want 200000", got)
	}
	if resp.LookupTimeMS < 0 {
		t.Errorf("lookup_time_ms = %v, want >= 0", resp.LookupTimeMS)
	}
}

func TestModelCapabilitiesUnknown(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodGet, "/v1/models/gpt-4/capabilities", nil)
	wantStatus(t, rec, http.StatusNotFound)
	if got := decodeError(t, rec).Code; got != "model_not_found" {
		t.Errorf("error code = %q, want model_not_found", got)
	}
}

func TestModelsMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/models"},
		{http.MethodGet, "/v1/models/validate"},
		{http.MethodDelete, "/v1/models/" + testModel},
	}
	for _, tt := range tests {
		rec := doRequest(t, h, tt.method, tt.path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tt.method, tt.path, rec.Code)
		}
	}
}
