package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/autodoc/internal/config"
)

var showConfig bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup (API keys go to the OS keychain)",
	Long: `Walk through autodoc configuration step by step.

This will configure:
1. LLM provider and model
2. The provider API key (stored in the OS keychain when available)
3. The embedding provider used for retrieval
4. Where documentation is written

Use --show to print the active configuration and any problems with it.`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().BoolVar(&showConfig, "show", false, "print the active configuration and exit")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	km := config.NewKeyringManager()
	if showConfig {
		return printConfig(km)
	}

	fmt.Println("🔧 autodoc configuration")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	homeDir, _ := os.UserHomeDir()
	configPath := filepath.Join(homeDir, ".autodoc", "autodoc.yaml")
	loaded, err := config.Load(configPath)
	if err != nil {
		loaded = config.Default()
	}

	// Step 1: provider and model
	fmt.Println("Step 1/4: LLM provider")
	fmt.Printf("Current: %s (%s)\n", loaded.LLM.Provider, loaded.LLM.Model)
	provider := ask(reader, "Provider [openai/gemini/custom]", loaded.LLM.Provider)
	if provider != loaded.LLM.Provider {
		loaded.LLM.Provider = provider
		loaded.LLM.Model = defaultModel(provider)
	}
	if provider == "custom" {
		loaded.LLM.BaseURL = ask(reader, "Base URL of the OpenAI-compatible endpoint", loaded.LLM.BaseURL)
	}
	loaded.LLM.Model = ask(reader, "Model", loaded.LLM.Model)
	fmt.Println()

	// Step 2: API key
	fmt.Println("Step 2/4: API key")
	source := km.APIKeySource(loaded)
	keep := false
	if source != config.KeySourceNone {
		fmt.Printf("A key is already configured (source: %s).\n", source)
		keep = strings.ToLower(ask(reader, "Keep existing key? (Y/n)", "y")) != "n"
	}
	if !keep {
		if !km.IsAvailable() {
			fmt.Println("⚠️  OS keychain not available; export the key in your shell instead.")
		} else {
			if _, err := config.NewCredentialManager().PromptForAPIKey(provider); err != nil {
				fmt.Printf("⚠️  %v\n", err)
			}
		}
	}
	fmt.Println()

	// Step 3: embeddings
	fmt.Println("Step 3/4: Retrieval embeddings")
	loaded.Embedding.Provider = ask(reader, "Embedding provider [openai/gemini/none]", loaded.Embedding.Provider)
	fmt.Println()

	// Step 4: output
	fmt.Println("Step 4/4: Output")
	loaded.Output.Dir = ask(reader, "Output directory", loaded.Output.Dir)
	fmt.Println()

	result := loaded.Validate(config.ValidationContextAll)
	for _, w := range result.Warnings {
		fmt.Printf("⚠️  %s\n", w)
	}
	if result.HasErrors() {
		fmt.Print(result.Error())
		if strings.ToLower(ask(reader, "Save anyway? (y/N)", "n")) != "y" {
			return nil
		}
	}

	if err := loaded.Save(configPath); err != nil {
		return err
	}
	fmt.Printf("✅ Saved %s\n", configPath)
	return nil
}

func ask(reader *bufio.Reader, prompt, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", prompt, current)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.0-flash"
	case "openai":
		return "gpt-4o-mini"
	default:
		return ""
	}
}

func printConfig(km *config.KeyringManager) error {
	fmt.Printf("LLM:        %s / %s (key: %s)\n", cfg.LLM.Provider, cfg.LLM.Model, km.APIKeySource(cfg))
	if cfg.LLM.BaseURL != "" {
		fmt.Printf("Base URL:   %s\n", cfg.LLM.BaseURL)
	}
	fmt.Printf("Rate limit: %d requests/minute\n", cfg.LLM.RequestsPerMinute)
	fmt.Printf("Embeddings: %s / %s (%s)\n", cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.StorePath)
	fmt.Printf("Chunking:   %d tokens, summary policy %s\n", cfg.Pipeline.MaxTokensPerChunk, cfg.Pipeline.SummaryPolicy)
	fmt.Printf("Diagrams:   enabled=%t count=%d max repairs=%d\n", cfg.Diagram.Enabled, cfg.Diagram.Count, cfg.Diagram.MaxRetries)
	fmt.Printf("Output:     %s\n", cfg.Output.Dir)
	fmt.Printf("History:    %s\n", cfg.Storage.Type)

	result := cfg.Validate(config.ValidationContextAll)
	if result.HasErrors() {
		fmt.Println()
		fmt.Print(result.Error())
		return nil
	}
	for _, w := range result.Warnings {
		fmt.Printf("⚠️  %s\n", w)
	}
	return nil
}
