package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to claro! Let's configure your document assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "ollama", "mock (offline)"},
	}
	providerIdx, _, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}

	switch providerIdx {
	case 0:
		cfg.Provider = ProviderOpenAI
		cfg.Model = "gpt-4o-mini"
		cfg.EmbeddingProvider = EmbeddingOpenAI
		cfg.EmbeddingModel = "text-embedding-3-small"
	case 1:
		cfg.Provider = ProviderOllama
		cfg.Model = "llama3"
		cfg.EmbeddingProvider = EmbeddingOllama
		cfg.EmbeddingModel = "nomic-embed-text"
	case 2:
		cfg.Provider = ProviderMock
		cfg.Model = "mock"
		cfg.EmbeddingProvider = EmbeddingLocal
		cfg.EmbeddingModel = "local"
		cfg.Offline = true
	}

	// 2. Model override.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: cfg.Model,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model selection: %w", err)
	}
	cfg.Model = model

	// 3. Data directory.
	dirPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	dir, err := dirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data directory selection: %w", err)
	}
	cfg.DataDir = dir

	// 4. HTTP port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port selection: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, err
	}

	fmt.Printf("\nConfiguration written to %s\n", path)
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" {
		fmt.Printf("Remember to set %s before serving.\n", envVar)
	}
	return cfg, nil
}
