package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherRefreshesOnCredentialChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".credentials.json")

	r := NewResolver(ResolverOptions{
		CredentialsPath: path,
		Getenv:          noEnv,
		LookupCLI:       noCLI,
	})
	if r.State().Authenticated {
		t.Fatalf("expected unauthenticated before credentials land")
	}

	w := NewWatcher(r, nil)
	w.debounce = 10 * time.Millisecond
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Close()

	payload, err := json.Marshal(map[string]any{
		"claudeAiOauth": map[string]any{
			"accessToken": "sk-ant-oat01-test",
			"expiresAt":   time.Now().Add(time.Hour).UnixMilli(),
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if state := r.State(); state.Method == MethodClaudeCLI {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("watcher never refreshed auth state: %+v", r.State())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".credentials.json")

	r := NewResolver(ResolverOptions{
		CredentialsPath: path,
		Getenv:          noEnv,
		LookupCLI:       noCLI,
	})
	before := r.State().ResolvedAt

	w := NewWatcher(r, nil)
	w.debounce = 10 * time.Millisecond
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if got := r.State().ResolvedAt; !got.Equal(before) {
		t.Fatalf("unrelated file triggered a refresh")
	}
}

func TestWatcherMissingDirIsIdle(t *testing.T) {
	r := NewResolver(ResolverOptions{
		CredentialsPath: filepath.Join(t.TempDir(), "no-such-dir", ".credentials.json"),
		Getenv:          noEnv,
		LookupCLI:       noCLI,
	})
	w := NewWatcher(r, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() with missing dir error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
