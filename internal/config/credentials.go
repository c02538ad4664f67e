package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rohankatakam/autodoc/internal/errors"
	"golang.org/x/term"
)

// CredentialManager resolves provider API keys with a priority chain:
// environment → keychain → config file → interactive prompt
type CredentialManager struct {
	keyring *KeyringManager
	in      io.Reader
	out     io.Writer
}

// NewCredentialManager creates a credential manager bound to the process terminal
func NewCredentialManager() *CredentialManager {
	return &CredentialManager{
		keyring: NewKeyringManager(),
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

// ResolveAPIKey returns the key for cfg's provider. A missing key for a real
// provider is a fatal configuration error.
func (cm *CredentialManager) ResolveAPIKey(cfg *Config) (string, error) {
	provider := cfg.LLM.Provider
	if provider == "none" {
		return "", nil
	}

	if key := providerKeyFromEnv(provider); key != "" {
		return key, nil
	}
	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetAPIKey(provider); err == nil && key != "" {
			return key, nil
		}
	}
	if cfg.LLM.APIKey != "" {
		return cfg.LLM.APIKey, nil
	}

	if Interactive() {
		fmt.Fprintf(cm.out, "\nNo API key found for provider %q.\n", provider)
		return cm.PromptForAPIKey(provider)
	}

	return "", errors.ConfigErrorf(
		"no API key for LLM provider %q. Set it via:\n"+
			"  1. Environment variable: %s\n"+
			"  2. Run: autodoc configure (stores it in the OS keychain)\n"+
			"  3. Config file: llm.api_key", provider, envNameFor(provider))
}

// PromptForAPIKey reads a key without echo and stores it in the keychain
func (cm *CredentialManager) PromptForAPIKey(provider string) (string, error) {
	fmt.Fprintf(cm.out, "Enter %s API key: ", provider)
	key, err := cm.readSecurely()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errors.ConfigErrorf("%s API key is required", provider)
	}
	if provider == "openai" && !strings.HasPrefix(key, "sk-") {
		return "", errors.ValidationErrorf("OpenAI API key should start with 'sk-'")
	}

	if cm.keyring.IsAvailable() {
		if err := cm.keyring.SetAPIKey(provider, key); err == nil {
			fmt.Fprintln(cm.out, "✓ Saved to keychain")
		}
	}
	return key, nil
}

// readSecurely reads a secret from stdin without echoing when attached to a terminal
func (cm *CredentialManager) readSecurely() (string, error) {
	if f, ok := cm.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cm.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(cm.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func envNameFor(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "custom":
		return "CUSTOM_LLM_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// Interactive reports whether prompts are allowed: stdin is a terminal and
// the process is not running under CI
func Interactive() bool {
	return !IsCI() && term.IsTerminal(int(os.Stdin.Fd()))
}

// IsCI detects common CI/CD environments
func IsCI() bool {
	for _, envVar := range []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"BUILDKITE",
		"JENKINS_URL",
		"TF_BUILD",
	} {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}
