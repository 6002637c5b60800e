package claude

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/haasonsaas/claudebridge/internal/observability"
)

const (
	backendCLI = "cli"
	backendSDK = "sdk"

	// Runtime lines can carry whole file contents inside tool results.
	scannerInitialBuffer = 64 * 1024
	scannerMaxBuffer     = 10 * 1024 * 1024

	// maxStderrTail bounds how much process stderr we keep for error
	// reporting.
	maxStderrTail = 4096
)

// CLIRuntime runs completions through a local Claude CLI process using
// its stream-json output mode. Executable discovery happens once and is
// cached for the runtime's lifetime.
type CLIRuntime struct {
	command      string
	defaultModel string
	getenv       func(string) string
	logger       *observability.Logger

	discoverOnce sync.Once
	path         string
	discoverErr  error
}

// NewCLIRuntime builds the CLI backend. cfg.Command, when set, bypasses
// discovery.
func NewCLIRuntime(cfg Config, logger *observability.Logger) *CLIRuntime {
	getenv := cfg.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{Level: "error", Output: io.Discard})
	}
	return &CLIRuntime{
		command:      cfg.Command,
		defaultModel: cfg.DefaultModel,
		getenv:       getenv,
		logger:       logger,
	}
}

func (c *CLIRuntime) binaryPath() (string, error) {
	c.discoverOnce.Do(func() {
		if c.command != "" {
			path, err := resolveCommand(c.command)
			if err != nil {
				c.discoverErr = fmt.Errorf("claude command %q: %w", c.command, err)
				return
			}
			c.path = path
			return
		}
		c.path, c.discoverErr = Discover(c.getenv)
	})
	return c.path, c.discoverErr
}

// Verify reports whether a Claude CLI executable is available.
func (c *CLIRuntime) Verify(ctx context.Context) Verification {
	path, err := c.binaryPath()
	if err != nil {
		return Verification{
			Backend:    backendCLI,
			Suggestion: installSuggestion,
			Error:      err.Error(),
		}
	}
	return Verification{Available: true, Backend: backendCLI, Path: path}
}

// RunCompletion spawns one CLI invocation and streams its events. The
// process runs in its own group so cancellation can take down any
// children it forked.
func (c *CLIRuntime) RunCompletion(ctx context.Context, req Request) (*Stream, error) {
	path, err := c.binaryPath()
	if err != nil {
		return nil, NewRuntimeError(backendCLI, req.Model, err).WithKind(ErrKindSpawn)
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	cmd := exec.CommandContext(ctx, path, buildCLIArgs(req, model)...)
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = mergeEnv(os.Environ(), req.Env)

	stderr := newTailBuffer(maxStderrTail)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, NewRuntimeError(backendCLI, model, err).WithKind(ErrKindSpawn)
	}
	if err := cmd.Start(); err != nil {
		return nil, NewRuntimeError(backendCLI, model, err).WithKind(ErrKindSpawn).WithMessage("starting claude cli")
	}

	c.logger.Debug(ctx, "claude cli started", "path", path, "model", model, "pid", cmd.Process.Pid)

	stream := newStream()
	go c.consume(ctx, cmd, stdout, stderr, stream, model)
	return stream, nil
}

// consume reads stream-json lines until EOF, translating each into
// runtime events. It owns process teardown and always closes the stream.
func (c *CLIRuntime) consume(ctx context.Context, cmd *exec.Cmd, stdout io.ReadCloser, stderr *tailBuffer, stream *Stream, model string) {
	var (
		result     *Result
		stopReason string
	)

	// Children inherit the stdout pipe; killing the whole group on
	// cancellation is what unblocks the scanner.
	watchdog := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.killGroup(cmd)
		case <-watchdog:
		}
	}()
	defer close(watchdog)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, scannerInitialBuffer), scannerMaxBuffer)

scan:
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			break scan
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		events, res, err := translateCLILine([]byte(line), &stopReason)
		if err != nil {
			c.logger.Debug(ctx, "skipping malformed runtime line", "error", err, "line_length", len(line))
			continue
		}
		if res != nil {
			result = res
		}
		for _, ev := range events {
			if !stream.send(ctx, ev) {
				break scan
			}
		}
	}

	if ctx.Err() != nil {
		c.killGroup(cmd)
		_ = cmd.Wait()
		stream.close(NewRuntimeError(backendCLI, model, ctx.Err()).WithStderr(stderr.String()))
		return
	}

	if err := scanner.Err(); err != nil {
		c.killGroup(cmd)
		_ = cmd.Wait()
		stream.close(NewRuntimeError(backendCLI, model, err).WithKind(ErrKindProtocol).WithStderr(stderr.String()))
		return
	}

	waitErr := cmd.Wait()
	if result == nil {
		err := waitErr
		if err == nil {
			err = errors.New("runtime exited without a result event")
		}
		re := NewRuntimeError(backendCLI, model, err).WithStderr(stderr.String())
		if tail := stderr.String(); tail != "" {
			if kind := ClassifyError(errors.New(tail)); kind != ErrKindUnknown {
				re.Kind = kind
			}
			re = re.WithMessage(tail)
		}
		if re.Kind == ErrKindUnknown {
			re.Kind = ErrKindUpstream
		}
		stream.close(re)
		return
	}

	// A nonzero exit after a complete result is tolerated.
	if waitErr != nil {
		c.logger.Debug(ctx, "claude cli exited uncleanly after result", "error", waitErr)
	}
	stream.close(nil)
}

func (c *CLIRuntime) killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

// buildCLIArgs assembles the stream-json invocation. Flags come first,
// the prompt is always the final positional argument.
func buildCLIArgs(req Request, model string) []string {
	args := []string{"--print", "--output-format", "stream-json", "--verbose"}
	if model != "" {
		args = append(args, "--model", model)
	}
	if system := joinPromptParts(req.SystemPrompt, renderToolContext(req.Tools)); system != "" {
		args = append(args, "--system-prompt", system)
	}
	if req.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(req.MaxTurns))
	}
	return append(args, req.Prompt)
}

// renderToolContext flattens tool declarations into system prompt text.
// The CLI has no structured tool parameter, so declarations ride along as
// instructions the model answers with tool_use blocks.
func renderToolContext(tools []ToolSpec) string {
	if len(tools) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("The following functions are available. Call one by emitting a tool_use block with the function name and JSON arguments.")
	for _, t := range tools {
		fmt.Fprintf(&b, "\n\n%s: %s", t.Name, t.Description)
		if len(t.InputSchema) > 0 {
			fmt.Fprintf(&b, "\nInput schema: %s", string(t.InputSchema))
		}
	}
	return b.String()
}

func joinPromptParts(parts ...string) string {
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			joined = append(joined, p)
		}
	}
	return strings.Join(joined, "\n\n")
}

// mergeEnv overlays entries onto base, shadowing duplicates.
func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		if name, _, ok := strings.Cut(kv, "="); ok {
			if _, shadowed := overlay[name]; shadowed {
				continue
			}
		}
		merged = append(merged, kv)
	}
	for k, v := range overlay {
		merged = append(merged, k+"="+v)
	}
	return merged
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
