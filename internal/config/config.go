package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Diagram   DiagramConfig   `yaml:"diagram" mapstructure:"diagram"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// LLMConfig selects and tunes the model backend
type LLMConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // "openai", "gemini", "custom", "none"
	Model             string        `yaml:"model" mapstructure:"model"`
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"` // custom provider only
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens         int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	RedisURL          string        `yaml:"redis_url" mapstructure:"redis_url"`     // optional shared quota
	DailyQuota        int           `yaml:"daily_quota" mapstructure:"daily_quota"` // 0 = unlimited
}

// EmbeddingConfig controls the retrieval store
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "openai", "gemini", "none"
	Model     string `yaml:"model" mapstructure:"model"`
	StorePath string `yaml:"store_path" mapstructure:"store_path"`
	TopK      int    `yaml:"top_k" mapstructure:"top_k"`
}

// PipelineConfig tunes discovery and per-file processing
type PipelineConfig struct {
	MaxTokensPerChunk int      `yaml:"max_tokens_per_chunk" mapstructure:"max_tokens_per_chunk"`
	WarnFileCount     int      `yaml:"warn_file_count" mapstructure:"warn_file_count"`
	Include           []string `yaml:"include" mapstructure:"include"`
	Exclude           []string `yaml:"exclude" mapstructure:"exclude"`
	SummaryPolicy     string   `yaml:"summary_policy" mapstructure:"summary_policy"` // "last", "concatenate"
	OutlineHints      bool     `yaml:"outline_hints" mapstructure:"outline_hints"`
	TestFileLimit     int      `yaml:"test_file_limit" mapstructure:"test_file_limit"`
	TeamContext       string   `yaml:"team_context" mapstructure:"team_context"`
}

// DiagramConfig controls diagram generation and rendering
type DiagramConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Count       int           `yaml:"count" mapstructure:"count"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	SettleDelay time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ChromePath  string        `yaml:"chrome_path" mapstructure:"chrome_path"`
}

// OutputConfig controls where artifacts are written
type OutputConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	HTML bool   `yaml:"html" mapstructure:"html"`
	Open bool   `yaml:"open" mapstructure:"open"`
}

// StorageConfig selects the run-history backend
type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "sqlite", "postgres", "none"
	LocalPath   string `yaml:"local_path" mapstructure:"local_path"`
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
}

// LoggingConfig controls the log sink
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	Dir   string `yaml:"dir" mapstructure:"dir"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			RequestsPerMinute: 60,
			Timeout:           2 * time.Minute,
			MaxTokens:         4096,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			StorePath: filepath.Join(homeDir, ".autodoc", "vectors.db"),
			TopK:      5,
		},
		Pipeline: PipelineConfig{
			MaxTokensPerChunk: 1000,
			WarnFileCount:     100,
			Include:           []string{"**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx", "**/*.py", "**/*.go"},
			Exclude:           []string{"**/node_modules/**", "**/.git/**", "**/dist/**", "**/build/**", "**/vendor/**", "**/*.min.js"},
			SummaryPolicy:     "last",
			OutlineHints:      true,
			TestFileLimit:     3,
		},
		Diagram: DiagramConfig{
			Enabled:     true,
			Count:       2,
			MaxRetries:  4,
			SettleDelay: 500 * time.Millisecond,
			Timeout:     30 * time.Second,
		},
		Output: OutputConfig{
			Dir: "autodoc-output",
		},
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".autodoc", "history.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file, environment and the OS keychain.
// Precedence: environment > keychain > config file > defaults.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix("AUTODOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("autodoc")
		v.AddConfigPath(".")
		v.AddConfigPath(".autodoc")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".autodoc"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg, NewKeyringManager())
	return cfg, nil
}

// setDefaults registers every leaf key so AutomaticEnv can override nested values
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.requests_per_minute", cfg.LLM.RequestsPerMinute)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.redis_url", cfg.LLM.RedisURL)
	v.SetDefault("llm.daily_quota", cfg.LLM.DailyQuota)

	v.SetDefault("embedding.provider", cfg.Embedding.Provider)
	v.SetDefault("embedding.model", cfg.Embedding.Model)
	v.SetDefault("embedding.store_path", cfg.Embedding.StorePath)
	v.SetDefault("embedding.top_k", cfg.Embedding.TopK)

	v.SetDefault("pipeline.max_tokens_per_chunk", cfg.Pipeline.MaxTokensPerChunk)
	v.SetDefault("pipeline.warn_file_count", cfg.Pipeline.WarnFileCount)
	v.SetDefault("pipeline.include", cfg.Pipeline.Include)
	v.SetDefault("pipeline.exclude", cfg.Pipeline.Exclude)
	v.SetDefault("pipeline.summary_policy", cfg.Pipeline.SummaryPolicy)
	v.SetDefault("pipeline.outline_hints", cfg.Pipeline.OutlineHints)
	v.SetDefault("pipeline.test_file_limit", cfg.Pipeline.TestFileLimit)
	v.SetDefault("pipeline.team_context", cfg.Pipeline.TeamContext)

	v.SetDefault("diagram.enabled", cfg.Diagram.Enabled)
	v.SetDefault("diagram.count", cfg.Diagram.Count)
	v.SetDefault("diagram.max_retries", cfg.Diagram.MaxRetries)
	v.SetDefault("diagram.settle_delay", cfg.Diagram.SettleDelay)
	v.SetDefault("diagram.timeout", cfg.Diagram.Timeout)
	v.SetDefault("diagram.chrome_path", cfg.Diagram.ChromePath)

	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.html", cfg.Output.HTML)
	v.SetDefault("output.open", cfg.Output.Open)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.local_path", cfg.Storage.LocalPath)
	v.SetDefault("storage.postgres_dsn", cfg.Storage.PostgresDSN)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.dir", cfg.Logging.Dir)
}

// loadEnvFiles loads .env files in order of precedence. godotenv never
// overrides variables that are already set, so the first file wins.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".autodoc", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// secretStore is the subset of the keychain used while resolving API keys
type secretStore interface {
	IsAvailable() bool
	GetAPIKey(provider string) (string, error)
}

// applyEnvOverrides applies the conventional provider variables on top of the
// AUTODOC_* ones viper already handled
func applyEnvOverrides(cfg *Config, secrets secretStore) {
	if key := providerKeyFromEnv(cfg.LLM.Provider); key != "" {
		cfg.LLM.APIKey = key
	} else if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "none" && secrets != nil && secrets.IsAvailable() {
		if key, err := secrets.GetAPIKey(cfg.LLM.Provider); err == nil && key != "" {
			cfg.LLM.APIKey = key
		}
	}

	if url := os.Getenv("CUSTOM_LLM_URL"); url != "" {
		cfg.LLM.BaseURL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" && cfg.LLM.RedisURL == "" {
		cfg.LLM.RedisURL = url
	}
	if rpm := os.Getenv("LLM_REQUESTS_PER_MINUTE"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			cfg.LLM.RequestsPerMinute = n
		}
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" && cfg.Storage.PostgresDSN == "" {
		cfg.Storage.PostgresDSN = dsn
	}

	cfg.Embedding.StorePath = expandPath(cfg.Embedding.StorePath)
	cfg.Storage.LocalPath = expandPath(cfg.Storage.LocalPath)
	cfg.Output.Dir = expandPath(cfg.Output.Dir)
}

// providerKeyFromEnv returns the conventional environment key for a provider
func providerKeyFromEnv(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "custom":
		return os.Getenv("CUSTOM_LLM_KEY")
	default:
		return ""
	}
}

// EmbeddingAPIKey returns the key used for the embedding provider. It reuses
// the LLM key when both use the same provider.
func (c *Config) EmbeddingAPIKey() string {
	if c.Embedding.Provider == c.LLM.Provider && c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	if key := providerKeyFromEnv(c.Embedding.Provider); key != "" {
		return key
	}
	km := NewKeyringManager()
	if km.IsAvailable() {
		if key, err := km.GetAPIKey(c.Embedding.Provider); err == nil {
			return key
		}
	}
	return ""
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes configuration to path. API keys are never written; they belong
// in the keychain or environment.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	llm := c.LLM
	llm.APIKey = ""
	v.Set("llm", llm)
	v.Set("embedding", c.Embedding)
	v.Set("pipeline", c.Pipeline)
	v.Set("diagram", c.Diagram)
	v.Set("output", c.Output)
	v.Set("storage", c.Storage)
	v.Set("logging", c.Logging)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
