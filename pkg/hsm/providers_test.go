package hsm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	const testPassword = "correct horse battery staple"
	t.Setenv(DefaultEnvVar, testPassword)

	p := &EnvProvider{}
	got, err := p.GetPassword(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != testPassword {
		t.Errorf("got %q, want %q", got, testPassword)
	}
}

func TestEnvProviderCustomVar(t *testing.T) {
	const testPassword = "custom-passphrase"
	t.Setenv("MY_KEYSTORE_PASSPHRASE", testPassword)

	p := &EnvProvider{EnvVar: "MY_KEYSTORE_PASSPHRASE"}
	got, err := p.GetPassword(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != testPassword {
		t.Errorf("got %q, want %q", got, testPassword)
	}
}

func TestEnvProviderEmpty(t *testing.T) {
	t.Setenv(DefaultEnvVar, "")

	p := &EnvProvider{}
	if _, err := p.GetPassword(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty env var")
	}
}

func TestFileProvider(t *testing.T) {
	const testPassword = "file-passphrase"

	path := filepath.Join(t.TempDir(), "passphrase.txt")
	if err := os.WriteFile(path, []byte(testPassword+"\r\n"), 0600); err != nil {
		t.Fatalf("failed to write passphrase file: %v", err)
	}

	p := &FileProvider{Path: path}
	got, err := p.GetPassword(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != testPassword {
		t.Errorf("got %q, want %q", got, testPassword)
	}
}

func TestFileProviderFallbacks(t *testing.T) {
	const testPassword = "fallback-passphrase"

	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, []byte(testPassword), 0600); err != nil {
		t.Fatalf("failed to write passphrase file: %v", err)
	}

	// keyID names the keystore directory; it must not be read as a file
	t.Setenv(DefaultFileEnv, "")
	if _, err := (&FileProvider{}).GetPassword(context.Background(), t.TempDir()); err == nil || !strings.Contains(err.Error(), "no file path configured") {
		t.Fatalf("keystore dir used as passphrase file: %v", err)
	}

	t.Setenv(DefaultFileEnv, path)
	got, err := (&FileProvider{}).GetPassword(context.Background(), "/var/lib/thresholdctl/keystore")
	if err != nil || got != testPassword {
		t.Fatalf("env fallback: got %q, %v", got, err)
	}
}

func TestFileProviderMissing(t *testing.T) {
	p := &FileProvider{Path: "/nonexistent/path/to/passphrase.txt"}
	if _, err := p.GetPassword(context.Background(), ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFileProviderEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\n"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	p := &FileProvider{Path: path}
	if _, err := p.GetPassword(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty passphrase file")
	}
}

func TestPromptProviderRequiresTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()

	p := &PromptProvider{In: f}
	_, err = p.GetPassword(context.Background(), "")
	if !errors.Is(err, ErrNotTerminal) {
		t.Fatalf("got %v, want ErrNotTerminal", err)
	}
}

func TestNewPasswordProviderDefaults(t *testing.T) {
	p, err := NewPasswordProvider("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*EnvProvider); !ok {
		t.Errorf("expected *EnvProvider, got %T", p)
	}
}

func TestNewPasswordProviderAllTypes(t *testing.T) {
	tests := []struct {
		providerType string
		check        func(PasswordProvider) bool
	}{
		{"env", func(p PasswordProvider) bool { _, ok := p.(*EnvProvider); return ok }},
		{"FILE", func(p PasswordProvider) bool { _, ok := p.(*FileProvider); return ok }},
		{"prompt", func(p PasswordProvider) bool { pp, ok := p.(*PromptProvider); return ok && pp.Confirm }},
	}

	for _, tt := range tests {
		t.Run(tt.providerType, func(t *testing.T) {
			p, err := NewPasswordProvider(tt.providerType, map[string]string{"confirm": "true"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(p) {
				t.Errorf("unexpected provider %T", p)
			}
		})
	}
}

func TestNewPasswordProviderUnknown(t *testing.T) {
	if _, err := NewPasswordProvider("aws", nil); err == nil {
		t.Fatal("expected error for unsupported provider type")
	}
}
