package config

// Runtime backend selectors.
const (
	// RuntimeCLI drives a local Claude CLI process (default).
	RuntimeCLI = "cli"
	// RuntimeSDK drives the Anthropic API directly; requires the anthropic
	// auth method to resolve.
	RuntimeSDK = "sdk"
)

// ClaudeConfig controls how the gateway invokes Claude.
type ClaudeConfig struct {
	// Command overrides executable discovery with an explicit path. The
	// CLAUDE_COMMAND and CLAUDE_CLI_PATH environment variables take
	// precedence over this field.
	Command string `yaml:"command"`

	// DefaultModel is used when a request omits the model field.
	DefaultModel string `yaml:"default_model"`

	// Runtime selects the backend: "cli" or "sdk".
	Runtime string `yaml:"runtime"`

	// MaxTurns caps agentic turns per invocation; 0 leaves the runtime
	// default in place.
	MaxTurns int `yaml:"max_turns"`
}
