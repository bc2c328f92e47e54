package hsm

import (
	"fmt"
	"os"
	"strings"
)

// NewPasswordProvider creates a PasswordProvider based on the given type string.
// Supported types: "env", "file", "prompt".
//
// The config map is optional; missing values fall back to environment
// variables:
//
//	env:    env_var (default THRESHOLDCTL_PASSPHRASE)
//	file:   path, or THRESHOLDCTL_PASSPHRASE_FILE
//	prompt: confirm ("true" to ask twice)
//
// If providerType is empty, it defaults to "env".
func NewPasswordProvider(providerType string, config map[string]string) (PasswordProvider, error) {
	providerType = strings.TrimSpace(strings.ToLower(providerType))
	if providerType == "" {
		providerType = "env"
	}

	get := func(key, envKey string) string {
		if config != nil {
			if v, ok := config[key]; ok && v != "" {
				return v
			}
		}
		if envKey == "" {
			return ""
		}
		return os.Getenv(envKey)
	}

	switch providerType {
	case "env":
		return &EnvProvider{EnvVar: get("env_var", "")}, nil

	case "file":
		return &FileProvider{Path: get("path", DefaultFileEnv)}, nil

	case "prompt":
		return &PromptProvider{Confirm: get("confirm", "") == "true"}, nil

	default:
		return nil, fmt.Errorf("hsm: unknown provider type %q (supported: env, file, prompt)", providerType)
	}
}
