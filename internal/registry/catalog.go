// Package registry provides the catalog of Claude models served by the
// gateway: ids, aliases, capabilities, and metadata, with O(1) lookup and
// validation with ranked suggestions for unknown ids.
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Capability identifies a model capability.
type Capability string

const (
	CapVision      Capability = "vision"       // Can process images
	CapTools       Capability = "tools"        // Supports function calling
	CapStreaming   Capability = "streaming"    // Supports streaming responses
	CapJSON        Capability = "json"         // Supports JSON mode
	CapCode        Capability = "code"         // Optimized for code
	CapReasoning   Capability = "reasoning"    // Extended reasoning mode
	CapLongContext Capability = "long_context" // 100k+ context window
	CapCaching     Capability = "caching"      // Supports prompt caching
)

// Tier identifies a model's quality/cost tier.
type Tier string

const (
	TierFlagship Tier = "flagship" // Best quality, highest cost
	TierStandard Tier = "standard" // Good balance
	TierFast     Tier = "fast"     // Faster, cheaper
)

// Model describes one Claude model the gateway accepts.
type Model struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is a human-readable name
	Name string `json:"name"`

	// Tier is the quality/cost tier
	Tier Tier `json:"tier"`

	// ContextWindow is the maximum context size in tokens
	ContextWindow int `json:"context_window"`

	// MaxOutputTokens is the maximum output size
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`

	// Capabilities lists what the model can do
	Capabilities []Capability `json:"capabilities"`

	// Aliases are alternative names accepted for this model
	Aliases []string `json:"aliases,omitempty"`

	// Deprecated indicates the model should no longer be used
	Deprecated bool `json:"deprecated,omitempty"`

	// ReplacedBy is the recommended replacement for deprecated models
	ReplacedBy string `json:"replaced_by,omitempty"`

	// ReleaseDate is when the model was released (YYYY-MM-DD)
	ReleaseDate string `json:"release_date,omitempty"`

	// Description is a brief description
	Description string `json:"description,omitempty"`

	// InputPrice is the price per million input tokens (USD)
	InputPrice float64 `json:"input_price,omitempty"`

	// OutputPrice is the price per million output tokens (USD)
	OutputPrice float64 `json:"output_price,omitempty"`
}

// HasCapability checks if the model has a specific capability.
func (m *Model) HasCapability(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// SupportsVision returns true if the model can process images.
func (m *Model) SupportsVision() bool {
	return m.HasCapability(CapVision)
}

// SupportsTools returns true if the model supports function calling.
func (m *Model) SupportsTools() bool {
	return m.HasCapability(CapTools)
}

// SupportsStreaming returns true if the model supports streaming.
func (m *Model) SupportsStreaming() bool {
	return m.HasCapability(CapStreaming)
}

// CapabilityMap returns the capabilities in the wire shape used by
// GET /v1/models responses and the capabilities endpoint.
func (m *Model) CapabilityMap() map[string]any {
	return map[string]any{
		"streaming":          m.HasCapability(CapStreaming),
		"function_calling":   m.HasCapability(CapTools),
		"tools":              m.HasCapability(CapTools),
		"vision":             m.HasCapability(CapVision),
		"json_mode":          m.HasCapability(CapJSON),
		"code_execution":     m.HasCapability(CapCode),
		"reasoning_mode":     m.HasCapability(CapReasoning),
		"prompt_caching":     m.HasCapability(CapCaching),
		"max_context_length": m.ContextWindow,
	}
}

// MetadataMap returns descriptive metadata for GET /v1/models responses.
func (m *Model) MetadataMap() map[string]any {
	meta := map[string]any{
		"pricing_tier":      string(m.Tier),
		"performance_class": performanceClass(m.Tier),
		"context_window":    m.ContextWindow,
		"output_tokens":     m.MaxOutputTokens,
	}
	if m.ReleaseDate != "" {
		meta["release_date"] = m.ReleaseDate
	}
	if m.Description != "" {
		meta["description"] = m.Description
	}
	if m.Deprecated {
		meta["deprecated"] = true
		if m.ReplacedBy != "" {
			meta["replaced_by"] = m.ReplacedBy
		}
	}
	return meta
}

// CreatedUnix returns the release date as a Unix timestamp for the OpenAI
// model object's created field. Returns 0 for unparseable dates.
func (m *Model) CreatedUnix() int64 {
	if m.ReleaseDate == "" {
		return 0
	}
	t, err := time.Parse("2006-01-02", m.ReleaseDate)
	if err != nil {
		return 0
	}
	return t.Unix()
}

func performanceClass(t Tier) string {
	switch t {
	case TierFlagship:
		return "highest-quality"
	case TierFast:
		return "low-latency"
	default:
		return "balanced"
	}
}

// Catalog manages the set of supported models.
type Catalog struct {
	models  map[string]*Model // id -> model
	aliases map[string]string // alias -> id
	mu      sync.RWMutex
}

// NewCatalog creates a catalog populated with the built-in Claude models.
func NewCatalog() *Catalog {
	c := &Catalog{
		models:  make(map[string]*Model),
		aliases: make(map[string]string),
	}
	c.registerBuiltinModels()
	return c
}

// Register adds a model to the catalog.
func (c *Catalog) Register(model *Model) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.models[model.ID] = model
	for _, alias := range model.Aliases {
		c.aliases[strings.ToLower(alias)] = model.ID
	}
}

// Get retrieves a model by ID or alias.
func (c *Catalog) Get(id string) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if model, ok := c.models[id]; ok {
		return model, true
	}
	if realID, ok := c.aliases[strings.ToLower(id)]; ok {
		return c.models[realID], true
	}
	return nil, false
}

// IsAlias reports whether id resolves through the alias table rather than
// being a canonical model id.
func (c *Catalog) IsAlias(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.models[id]; ok {
		return false
	}
	_, ok := c.aliases[strings.ToLower(id)]
	return ok
}

// List returns all models sorted by tier, then id. Deprecated models sort
// after active ones within a tier.
func (c *Catalog) List() []*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*Model, 0, len(c.models))
	for _, model := range c.models {
		result = append(result, model)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Deprecated != result[j].Deprecated {
			return !result[i].Deprecated
		}
		if result[i].Tier != result[j].Tier {
			return tierRank(result[i].Tier) < tierRank(result[j].Tier)
		}
		return result[i].ID < result[j].ID
	})

	return result
}

// IDs returns the canonical model ids, active models first, sorted.
func (c *Catalog) IDs() []string {
	models := c.List()
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	return ids
}

// ActiveIDs returns canonical ids of non-deprecated models, sorted.
func (c *Catalog) ActiveIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.models))
	for id, m := range c.models {
		if !m.Deprecated {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// knownNames returns every accepted model value: canonical ids plus aliases.
func (c *Catalog) knownNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.models)+len(c.aliases))
	for id := range c.models {
		names = append(names, id)
	}
	for alias := range c.aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

func tierRank(t Tier) int {
	switch t {
	case TierFlagship:
		return 0
	case TierStandard:
		return 1
	case TierFast:
		return 2
	default:
		return 3
	}
}

func (c *Catalog) registerBuiltinModels() {
	c.Register(&Model{
		ID:              "claude-opus-4-20250514",
		Name:            "Claude Opus 4",
		Tier:            TierFlagship,
		ContextWindow:   200000,
		MaxOutputTokens: 32000,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapReasoning, CapLongContext, CapCaching,
		},
		Aliases:     []string{"claude-opus-4", "opus-4", "opus"},
		ReleaseDate: "2025-05-14",
		Description: "Most capable model for complex reasoning and coding",
		InputPrice:  15.0,
		OutputPrice: 75.0,
	})

	c.Register(&Model{
		ID:              "claude-sonnet-4-20250514",
		Name:            "Claude Sonnet 4",
		Tier:            TierStandard,
		ContextWindow:   200000,
		MaxOutputTokens: 64000,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapReasoning, CapLongContext, CapCaching,
		},
		Aliases:     []string{"claude-sonnet-4", "sonnet-4", "sonnet"},
		ReleaseDate: "2025-05-14",
		Description: "Balanced model for everyday coding and analysis",
		InputPrice:  3.0,
		OutputPrice: 15.0,
	})

	c.Register(&Model{
		ID:              "claude-3-7-sonnet-20250219",
		Name:            "Claude 3.7 Sonnet",
		Tier:            TierStandard,
		ContextWindow:   200000,
		MaxOutputTokens: 64000,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapReasoning, CapLongContext, CapCaching,
		},
		Aliases:     []string{"claude-3-7-sonnet", "claude-3-7-sonnet-latest"},
		ReleaseDate: "2025-02-19",
		Description: "Hybrid reasoning model with extended thinking",
		InputPrice:  3.0,
		OutputPrice: 15.0,
	})

	c.Register(&Model{
		ID:              "claude-3-5-sonnet-20241022",
		Name:            "Claude 3.5 Sonnet",
		Tier:            TierStandard,
		ContextWindow:   200000,
		MaxOutputTokens: 8192,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext, CapCaching,
		},
		Aliases:     []string{"claude-3-5-sonnet", "claude-3-5-sonnet-latest"},
		ReleaseDate: "2024-10-22",
		Description: "Previous-generation balanced model",
		InputPrice:  3.0,
		OutputPrice: 15.0,
	})

	c.Register(&Model{
		ID:              "claude-3-5-haiku-20241022",
		Name:            "Claude 3.5 Haiku",
		Tier:            TierFast,
		ContextWindow:   200000,
		MaxOutputTokens: 8192,
		Capabilities: []Capability{
			CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext, CapCaching,
		},
		Aliases:     []string{"claude-3-5-haiku", "claude-3-5-haiku-latest", "haiku"},
		ReleaseDate: "2024-10-22",
		Description: "Fastest model for lightweight tasks",
		InputPrice:  0.8,
		OutputPrice: 4.0,
	})

	c.Register(&Model{
		ID:              "claude-3-opus-20240229",
		Name:            "Claude 3 Opus",
		Tier:            TierFlagship,
		ContextWindow:   200000,
		MaxOutputTokens: 4096,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext,
		},
		Aliases:     []string{"claude-3-opus"},
		Deprecated:  true,
		ReplacedBy:  "claude-opus-4-20250514",
		ReleaseDate: "2024-02-29",
		InputPrice:  15.0,
		OutputPrice: 75.0,
	})

	c.Register(&Model{
		ID:              "claude-3-haiku-20240307",
		Name:            "Claude 3 Haiku",
		Tier:            TierFast,
		ContextWindow:   200000,
		MaxOutputTokens: 4096,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON,
			CapLongContext,
		},
		Aliases:     []string{"claude-3-haiku"},
		Deprecated:  true,
		ReplacedBy:  "claude-3-5-haiku-20241022",
		ReleaseDate: "2024-03-07",
		InputPrice:  0.25,
		OutputPrice: 1.25,
	})
}
