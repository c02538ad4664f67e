package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextGenerate - a full generation run needs an LLM backend
	ValidationContextGenerate ValidationContext = "generate"
	// ValidationContextDocs - re-rendering docs from a snapshot needs only output settings
	ValidationContextDocs ValidationContext = "docs"
	// ValidationContextSearch - search needs an embedding backend
	ValidationContextSearch ValidationContext = "search"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ❌ %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠️  %s\n", warn))
		}
	}

	return sb.String()
}

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextGenerate:
		c.validateLLM(result, true)
		c.validateEmbedding(result)
		c.validatePipeline(result)
		c.validateDiagram(result)
		c.validateStorage(result)
	case ValidationContextDocs:
		c.validateOutput(result)
	case ValidationContextSearch:
		if c.Embedding.Provider == "none" {
			result.AddError("search requires an embedding provider (embedding.provider is \"none\")")
		}
		c.validateEmbedding(result)
	case ValidationContextAll:
		c.validateLLM(result, false)
		c.validateEmbedding(result)
		c.validatePipeline(result)
		c.validateDiagram(result)
		c.validateOutput(result)
		c.validateStorage(result)
	}

	return result
}

func (c *Config) validateLLM(result *ValidationResult, requireKey bool) {
	switch c.LLM.Provider {
	case "openai", "gemini":
	case "custom":
		if c.LLM.BaseURL == "" {
			result.AddError("llm.base_url is required for the custom provider")
		} else if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			result.AddError("llm.base_url is not a valid URL: %q", c.LLM.BaseURL)
		}
	case "none":
		if requireKey {
			result.AddError("no LLM backend selected (llm.provider is \"none\")")
		}
		return
	default:
		result.AddError("unknown llm.provider %q (want openai, gemini, custom or none)", c.LLM.Provider)
		return
	}

	if c.LLM.APIKey == "" {
		if requireKey {
			result.AddError("no API key for LLM provider %q", c.LLM.Provider)
		} else {
			result.AddWarning("no API key for LLM provider %q", c.LLM.Provider)
		}
	}
	if c.LLM.Model == "" {
		result.AddError("llm.model is required")
	}
	if c.LLM.RequestsPerMinute < 0 {
		result.AddError("llm.requests_per_minute must not be negative")
	}
	if c.LLM.RedisURL != "" && c.LLM.DailyQuota <= 0 {
		result.AddWarning("llm.redis_url is set but llm.daily_quota is 0; shared quota is disabled")
	}
}

func (c *Config) validateEmbedding(result *ValidationResult) {
	switch c.Embedding.Provider {
	case "none":
		result.AddWarning("embedding.provider is \"none\"; retrieval and annotation context are disabled")
		return
	case "openai", "gemini":
	default:
		result.AddError("unknown embedding.provider %q (want openai, gemini or none)", c.Embedding.Provider)
		return
	}
	if c.Embedding.StorePath == "" {
		result.AddError("embedding.store_path is required")
	}
	if c.Embedding.TopK <= 0 {
		result.AddError("embedding.top_k must be positive")
	}
}

func (c *Config) validatePipeline(result *ValidationResult) {
	if c.Pipeline.MaxTokensPerChunk <= 0 {
		result.AddError("pipeline.max_tokens_per_chunk must be positive")
	}
	switch c.Pipeline.SummaryPolicy {
	case "", "last", "concatenate":
	default:
		result.AddError("unknown pipeline.summary_policy %q (want last or concatenate)", c.Pipeline.SummaryPolicy)
	}
	if len(c.Pipeline.Include) == 0 {
		result.AddError("pipeline.include must list at least one glob")
	}
	for _, pattern := range append(append([]string{}, c.Pipeline.Include...), c.Pipeline.Exclude...) {
		if strings.TrimSpace(pattern) == "" {
			result.AddError("empty glob in pipeline.include/exclude")
			continue
		}
		if _, err := path.Match(pattern, ""); err != nil {
			result.AddError("invalid glob %q: %v", pattern, err)
		}
	}
	if c.Pipeline.WarnFileCount <= 0 {
		result.AddWarning("pipeline.warn_file_count is disabled; large projects will not ask for confirmation")
	}
}

func (c *Config) validateDiagram(result *ValidationResult) {
	if !c.Diagram.Enabled {
		return
	}
	if c.Diagram.MaxRetries < 0 {
		result.AddError("diagram.max_retries must not be negative")
	}
	if c.Diagram.Count <= 0 {
		result.AddWarning("diagram.count is 0; no diagrams will be generated")
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	if c.Output.Dir == "" {
		result.AddError("output.dir is required")
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	switch c.Storage.Type {
	case "none":
	case "sqlite":
		if c.Storage.LocalPath == "" {
			result.AddError("storage.local_path is required for sqlite")
		}
	case "postgres":
		dsn := c.Storage.PostgresDSN
		if dsn == "" {
			result.AddError("storage.postgres_dsn is required for postgres")
		} else if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
			result.AddError("storage.postgres_dsn must start with postgres:// or postgresql://")
		}
	default:
		result.AddError("unknown storage.type %q (want sqlite, postgres or none)", c.Storage.Type)
	}
}
