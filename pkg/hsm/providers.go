// Package hsm supplies the passphrase that unlocks a participant's local
// keystore. The passphrase never touches the artifact store; it comes from
// the environment, a mounted secret file, or the operator's terminal.
package hsm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	DefaultEnvVar  = "THRESHOLDCTL_PASSPHRASE"
	DefaultFileEnv = "THRESHOLDCTL_PASSPHRASE_FILE"
)

// PasswordProvider returns the keystore passphrase. keyID names the keystore
// being unlocked; the prompt shows it to the operator.
type PasswordProvider interface {
	GetPassword(ctx context.Context, keyID string) (string, error)
}

// ---------------------------------------------------------------------------
// 1. Env Provider
// ---------------------------------------------------------------------------

// EnvProvider reads the passphrase from an environment variable. Suitable
// for development and CI runs.
type EnvProvider struct {
	EnvVar string // defaults to THRESHOLDCTL_PASSPHRASE
}

func (p *EnvProvider) GetPassword(_ context.Context, _ string) (string, error) {
	envVar := p.EnvVar
	if envVar == "" {
		envVar = DefaultEnvVar
	}
	password := os.Getenv(envVar)
	if password == "" {
		return "", fmt.Errorf("hsm/env: environment variable %s is not set", envVar)
	}
	return password, nil
}

// ---------------------------------------------------------------------------
// 2. File Provider
// ---------------------------------------------------------------------------

// FileProvider reads the passphrase from a file on disk, such as a
// Kubernetes or Docker secret mounted as a volume.
type FileProvider struct {
	Path string
}

// GetPassword reads the passphrase from Path, falling back to
// THRESHOLDCTL_PASSPHRASE_FILE. keyID only names the keystore and is never
// read as a path. Trailing newlines are stripped.
func (p *FileProvider) GetPassword(_ context.Context, _ string) (string, error) {
	path := p.Path
	if path == "" {
		path = os.Getenv(DefaultFileEnv)
	}
	if path == "" {
		return "", fmt.Errorf("hsm/file: no file path configured (set path or %s)", DefaultFileEnv)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hsm/file: failed to read password file %s: %w", path, err)
	}
	password := strings.TrimRight(string(data), "\n\r")
	if password == "" {
		return "", fmt.Errorf("hsm/file: password file %s is empty", path)
	}
	return password, nil
}

// ---------------------------------------------------------------------------
// 3. Prompt Provider
// ---------------------------------------------------------------------------

// ErrNotTerminal is returned by PromptProvider when stdin is not a terminal.
var ErrNotTerminal = errors.New("hsm/prompt: stdin is not a terminal")

// PromptProvider asks the operator for the passphrase without echo.
type PromptProvider struct {
	In      *os.File  // defaults to os.Stdin
	Out     io.Writer // defaults to os.Stderr
	Confirm bool      // ask twice, for new keystores
}

func (p *PromptProvider) GetPassword(ctx context.Context, keyID string) (string, error) {
	in := p.In
	if in == nil {
		in = os.Stdin
	}
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNotTerminal
	}

	read := func(label string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprintf(out, "%s: ", label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("hsm/prompt: %w", err)
		}
		return string(b), nil
	}

	label := "Keystore passphrase"
	if keyID != "" {
		label = fmt.Sprintf("Passphrase for %s", keyID)
	}
	password, err := read(label)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", fmt.Errorf("hsm/prompt: empty passphrase")
	}
	if p.Confirm {
		again, err := read("Confirm passphrase")
		if err != nil {
			return "", err
		}
		if again != password {
			return "", fmt.Errorf("hsm/prompt: passphrases do not match")
		}
	}
	return password, nil
}
