package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/rohankatakam/autodoc/internal/logging"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "autodoc"

	keyringProbeItem = "availability-probe"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: logging.Component("keyring"),
	}
}

func itemFor(provider string) string {
	return provider + "-api-key"
}

// SetAPIKey stores a provider's API key in the OS keychain
func (km *KeyringManager) SetAPIKey(provider, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	if provider == "" {
		return fmt.Errorf("provider cannot be empty")
	}

	if err := keyring.Set(KeyringService, itemFor(provider), apiKey); err != nil {
		km.logger.Error("failed to save API key to keychain", "provider", provider, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("api key saved to keychain", "service", KeyringService, "provider", provider)
	return nil
}

// GetAPIKey retrieves a provider's API key. A missing entry is not an error.
func (km *KeyringManager) GetAPIKey(provider string) (string, error) {
	apiKey, err := keyring.Get(KeyringService, itemFor(provider))
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get API key from keychain", "provider", provider, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("api key retrieved from keychain", "provider", provider)
	return apiKey, nil
}

// DeleteAPIKey removes a provider's API key from the OS keychain
func (km *KeyringManager) DeleteAPIKey(provider string) error {
	err := keyring.Delete(KeyringService, itemFor(provider))
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete API key from keychain", "provider", provider, "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("api key deleted from keychain", "provider", provider)
	return nil
}

// IsAvailable checks if OS keychain is available. Returns false on headless
// systems where no secret service is running.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, keyringProbeItem)
	if err == nil || err == keyring.ErrNotFound {
		return true
	}
	km.logger.Debug("keychain not available", "error", err)
	return false
}

// KeySource describes where the active API key came from
type KeySource string

const (
	KeySourceEnv      KeySource = "env"
	KeySourceKeychain KeySource = "keychain"
	KeySourceConfig   KeySource = "config"
	KeySourceNone     KeySource = "none"
)

// APIKeySource reports where cfg's LLM key is coming from
func (km *KeyringManager) APIKeySource(cfg *Config) KeySource {
	if providerKeyFromEnv(cfg.LLM.Provider) != "" || os.Getenv("AUTODOC_LLM_API_KEY") != "" {
		return KeySourceEnv
	}
	if km.IsAvailable() {
		if key, _ := km.GetAPIKey(cfg.LLM.Provider); key != "" {
			return KeySourceKeychain
		}
	}
	if cfg.LLM.APIKey != "" {
		return KeySourceConfig
	}
	return KeySourceNone
}

// MaskAPIKey masks an API key for display: "sk-proj...c123"
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "(not set)"
	}
	if len(apiKey) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", apiKey[:7], apiKey[len(apiKey)-4:])
}
