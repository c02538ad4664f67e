package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autodoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	keyring.MockInit()
	t.Setenv("GEMINI_API_KEY", "gemini-env-key")
	t.Setenv("AUTODOC_PIPELINE_MAX_TOKENS_PER_CHUNK", "250")

	path := writeConfig(t, `
llm:
  provider: gemini
  model: gemini-2.0-flash
  api_key: from-file
  requests_per_minute: 15
pipeline:
  summary_policy: concatenate
  include: ["src/**/*.ts"]
diagram:
  max_retries: 2
  settle_delay: 1s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, "gemini-env-key", cfg.LLM.APIKey, "environment beats config file")
	assert.Equal(t, 15, cfg.LLM.RequestsPerMinute)
	assert.Equal(t, 250, cfg.Pipeline.MaxTokensPerChunk)
	assert.Equal(t, "concatenate", cfg.Pipeline.SummaryPolicy)
	assert.Equal(t, []string{"src/**/*.ts"}, cfg.Pipeline.Include)
	assert.Equal(t, 2, cfg.Diagram.MaxRetries)
	assert.Equal(t, time.Second, cfg.Diagram.SettleDelay)

	// untouched sections keep defaults
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 5, cfg.Embedding.TopK)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveOmitsAPIKey(t *testing.T) {
	keyring.MockInit()
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Default()
	cfg.LLM.APIKey = "sk-secret-should-not-persist"
	cfg.Output.Dir = "docs-out"

	path := filepath.Join(t.TempDir(), "sub", "autodoc.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "docs-out", back.Output.Dir)
	assert.Empty(t, back.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.LLM.APIKey = "sk-abc"
		return c
	}

	t.Run("defaults with key are valid", func(t *testing.T) {
		res := valid().Validate(ValidationContextGenerate)
		assert.False(t, res.HasErrors(), res.Error())
	})

	t.Run("no backend is an error for generate", func(t *testing.T) {
		c := valid()
		c.LLM.Provider = "none"
		res := c.Validate(ValidationContextGenerate)
		require.True(t, res.HasErrors())
		assert.Contains(t, res.Error(), "no LLM backend selected")
	})

	t.Run("docs does not need a backend", func(t *testing.T) {
		c := Default()
		c.LLM.Provider = "none"
		assert.False(t, c.Validate(ValidationContextDocs).HasErrors())
	})

	t.Run("custom provider needs base url", func(t *testing.T) {
		c := valid()
		c.LLM.Provider = "custom"
		assert.True(t, c.Validate(ValidationContextGenerate).HasErrors())
		c.LLM.BaseURL = "http://localhost:8080/v1"
		assert.False(t, c.Validate(ValidationContextGenerate).HasErrors())
	})

	t.Run("bad pipeline values", func(t *testing.T) {
		c := valid()
		c.Pipeline.MaxTokensPerChunk = 0
		c.Pipeline.SummaryPolicy = "first"
		c.Pipeline.Exclude = append(c.Pipeline.Exclude, "[")
		res := c.Validate(ValidationContextGenerate)
		assert.Len(t, res.Errors, 3)
	})

	t.Run("postgres dsn format", func(t *testing.T) {
		c := valid()
		c.Storage.Type = "postgres"
		c.Storage.PostgresDSN = "host=localhost"
		assert.True(t, c.Validate(ValidationContextGenerate).HasErrors())
	})

	t.Run("search without embeddings", func(t *testing.T) {
		c := valid()
		c.Embedding.Provider = "none"
		assert.True(t, c.Validate(ValidationContextSearch).HasErrors())
	})
}
