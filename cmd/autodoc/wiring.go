package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rohankatakam/autodoc/internal/config"
	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/storage"
	"github.com/rohankatakam/autodoc/internal/vectorstore"
)

// openVectorStore returns the bbolt store, or Noop when embeddings are off or
// unavailable. Retrieval never blocks a run.
func openVectorStore(ctx context.Context, c *config.Config) vectorstore.Store {
	embedder, err := llm.NewEmbedder(ctx, c)
	if err != nil {
		logger.WithError(err).Warn("Embeddings unavailable, retrieval disabled")
		return vectorstore.Noop{}
	}
	if embedder == nil {
		logger.Debug("Embeddings switched off")
		return vectorstore.Noop{}
	}
	store, err := vectorstore.OpenBolt(c.Embedding.StorePath, embedder, vectorstore.WithRetries(1, time.Second))
	if err != nil {
		logger.WithError(err).Warn("Vector store unavailable, retrieval disabled")
		return vectorstore.Noop{}
	}
	logger.WithField("path", c.Embedding.StorePath).Debug("Vector store opened")
	return store
}

// openHistory returns the configured run-history store, or nil for "none"
func openHistory(c *config.Config) (storage.Store, error) {
	switch c.Storage.Type {
	case "none", "":
		return nil, nil
	case "sqlite":
		s, err := storage.NewSQLiteStore(c.Storage.LocalPath, logger)
		if err != nil {
			return nil, errors.StorageError(err, "open sqlite history")
		}
		return s, nil
	case "postgres":
		s, err := storage.NewPostgresStore(c.Storage.PostgresDSN, logger)
		if err != nil {
			return nil, errors.StorageError(err, "open postgres history")
		}
		return s, nil
	default:
		return nil, errors.ConfigErrorf("unknown storage.type %q", c.Storage.Type)
	}
}

// newLLMClient resolves the API key and builds the model client
func newLLMClient(ctx context.Context, c *config.Config) (*llm.Client, error) {
	key, err := config.NewCredentialManager().ResolveAPIKey(c)
	if err != nil {
		return nil, err
	}
	c.LLM.APIKey = key

	result := c.Validate(config.ValidationContextGenerate)
	if result.HasErrors() {
		return nil, errors.ConfigError(result.Error())
	}
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	return llm.NewClient(ctx, c)
}

func printUsage(u llm.Usage) {
	fmt.Printf("\nLLM usage: %d calls (%d failed, %d unparseable), %d prompt chars, %d response chars",
		u.Calls, u.Failures, u.ParseFailures, u.PromptChars, u.ResponseChars)
	if u.Tokens > 0 {
		fmt.Printf(", %d tokens", u.Tokens)
	}
	fmt.Printf(", %s\n", u.Elapsed.Round(time.Second))
}
