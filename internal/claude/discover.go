package claude

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// installSuggestion is surfaced when no Claude CLI can be found.
const installSuggestion = "npm install -g @anthropic-ai/claude-code"

// envCommandVars are consulted in order before filesystem probing.
var envCommandVars = []string{"CLAUDE_COMMAND", "CLAUDE_CLI_PATH"}

// wellKnownPaths lists install locations probed after the environment,
// relative paths are resolved against the user's home directory.
var wellKnownPaths = []string{
	".claude/local/claude",
	"/usr/local/bin/claude",
	"/opt/homebrew/bin/claude",
	".local/bin/claude",
	".npm-global/bin/claude",
}

// Discover locates the Claude CLI executable. Resolution order:
// CLAUDE_COMMAND, CLAUDE_CLI_PATH, well-known install locations, then
// PATH lookup. getenv defaults to os.Getenv when nil.
func Discover(getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	for _, name := range envCommandVars {
		cmd := strings.TrimSpace(getenv(name))
		if cmd == "" {
			continue
		}
		path, err := resolveCommand(cmd)
		if err != nil {
			return "", fmt.Errorf("%s=%q: %w", name, cmd, err)
		}
		return path, nil
	}

	home, _ := os.UserHomeDir()
	for _, candidate := range wellKnownPaths {
		path := candidate
		if !filepath.IsAbs(path) {
			if home == "" {
				continue
			}
			path = filepath.Join(home, candidate)
		}
		if isExecutable(path) {
			return path, nil
		}
	}

	if path, err := exec.LookPath("claude"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("claude cli not found; install it with %q or set CLAUDE_COMMAND", installSuggestion)
}

// resolveCommand turns an explicit command into an executable path. Bare
// names go through PATH; anything with a separator must exist as-is.
func resolveCommand(cmd string) (string, error) {
	if !strings.ContainsRune(cmd, os.PathSeparator) {
		return exec.LookPath(cmd)
	}
	if !isExecutable(cmd) {
		return "", fmt.Errorf("not an executable file")
	}
	return cmd, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
