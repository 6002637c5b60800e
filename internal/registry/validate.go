package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// maxSuggestions caps the ranked suggestion list returned for unknown ids.
const maxSuggestions = 3

// ValidationResult is the outcome of validating a requested model id.
type ValidationResult struct {
	Valid             bool     `json:"valid"`
	Model             string   `json:"model"`
	Errors            []string `json:"errors"`
	Warnings          []string `json:"warnings"`
	Suggestions       []string `json:"suggestions"`
	AlternativeModels []string `json:"alternative_models"`
	ValidationTimeMS  float64  `json:"validation_time_ms"`
}

// Validate checks whether id names a supported model. Unknown ids yield
// valid=false with suggestions ranked by edit distance against every accepted
// model name (canonical ids and aliases) and the list of active alternatives.
// Aliases and deprecated models validate with a warning.
func (c *Catalog) Validate(id string) *ValidationResult {
	start := time.Now()
	result := &ValidationResult{
		Model:             id,
		Errors:            []string{},
		Warnings:          []string{},
		Suggestions:       []string{},
		AlternativeModels: []string{},
	}

	defer func() {
		result.ValidationTimeMS = float64(time.Since(start).Microseconds()) / 1000.0
	}()

	if strings.TrimSpace(id) == "" {
		result.Errors = append(result.Errors, "model must not be empty")
		result.AlternativeModels = c.ActiveIDs()
		return result
	}

	model, ok := c.Get(id)
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("unknown model: %s", id))
		result.Suggestions = c.suggest(id)
		result.AlternativeModels = c.ActiveIDs()
		return result
	}

	result.Valid = true
	if c.IsAlias(id) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%q is an alias for %s", id, model.ID))
	}
	if model.Deprecated {
		warning := fmt.Sprintf("%s is deprecated", model.ID)
		if model.ReplacedBy != "" {
			warning += fmt.Sprintf("; use %s instead", model.ReplacedBy)
		}
		result.Warnings = append(result.Warnings, warning)
	}
	return result
}

// Capabilities returns the capability map for id (aliases resolve), with
// ok=false when the model is unknown.
func (c *Catalog) Capabilities(id string) (map[string]any, bool) {
	model, ok := c.Get(id)
	if !ok {
		return nil, false
	}
	return model.CapabilityMap(), true
}

// suggest ranks every accepted model name by edit distance to input and
// returns the closest few, one per canonical model.
func (c *Catalog) suggest(input string) []string {
	type candidate struct {
		name     string
		id       string
		distance int
	}

	lowered := strings.ToLower(input)
	var candidates []candidate
	for _, name := range c.knownNames() {
		candidates = append(candidates, candidate{
			name:     name,
			id:       c.resolve(name),
			distance: editDistance(lowered, strings.ToLower(name)),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].name < candidates[j].name
	})

	seen := make(map[string]bool)
	var suggestions []string
	for _, cand := range candidates {
		if seen[cand.id] {
			continue
		}
		seen[cand.id] = true
		suggestions = append(suggestions, cand.name)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions
}

// resolve maps any accepted name to its canonical id; unknown names map to
// themselves.
func (c *Catalog) resolve(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.models[name]; ok {
		return name
	}
	if id, ok := c.aliases[strings.ToLower(name)]; ok {
		return id
	}
	return name
}

// editDistance computes the Levenshtein distance between a and b using the
// two-row formulation.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
