package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCredentials(t *testing.T) {
	path := writeCredentials(t, time.Now().Add(time.Hour).UnixMilli())

	creds, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.AccessToken != "sk-ant-oat01-test" {
		t.Fatalf("AccessToken = %q", creds.AccessToken)
	}
	if creds.Expired() {
		t.Fatalf("credentials should not be expired")
	}
	if err := creds.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrCredentialsNotFound) {
		t.Fatalf("error = %v, want ErrCredentialsNotFound", err)
	}
}

func TestLoadCredentialsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadCredentials(path); !errors.Is(err, ErrCredentialsInvalid) {
		t.Fatalf("error = %v, want ErrCredentialsInvalid", err)
	}
}

func TestLoadCredentialsNoOAuthBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".credentials.json")
	if err := os.WriteFile(path, []byte(`{"other": {}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadCredentials(path); !errors.Is(err, ErrNoOAuthCredentials) {
		t.Fatalf("error = %v, want ErrNoOAuthCredentials", err)
	}
}

func TestCredentialsExpiry(t *testing.T) {
	past := &Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Minute).UnixMilli()}
	if !past.Expired() {
		t.Fatalf("expected past token to report expired")
	}
	if past.ExpiresIn() >= 0 {
		t.Fatalf("ExpiresIn() = %v, want negative", past.ExpiresIn())
	}

	future := &Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour).UnixMilli()}
	if future.Expired() {
		t.Fatalf("expected future token to be live")
	}
}

func TestCredentialsValidate(t *testing.T) {
	cases := []struct {
		name  string
		creds Credentials
		ok    bool
	}{
		{"complete", Credentials{AccessToken: "tok", ExpiresAt: 1}, true},
		{"missing token", Credentials{ExpiresAt: 1}, false},
		{"missing expiry", Credentials{AccessToken: "tok"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.creds.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate() error = %v, want nil", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
		})
	}
}
