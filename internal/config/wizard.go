package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// DefaultConfigFile is where the wizard and commands look for config.
const DefaultConfigFile = "billchat.yml"

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to billchat.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to billchat! Let's configure your service.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"xai", "openai"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	if cfg.Provider == ProviderOpenAI {
		cfg.Model = "gpt-4o"
	}

	// 2. Embedding model.
	embeddingPrompt := promptui.Select{
		Label: "Select embedding model",
		Items: []string{"text-embedding-3-large", "text-embedding-3-small"},
	}
	_, cfg.EmbeddingModel, err = embeddingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding selection: %w", err)
	}

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (database, vector index, cached PDFs)",
		Default: cfg.DataDir,
	}
	cfg.DataDir, err = dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

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
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// Check for API keys.
	for _, envVar := range []string{APIKeyEnvVar(cfg.Provider), "OPENAI_API_KEY", "CONGRESS_API_KEY"} {
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running billchat serve.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultConfigFile); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultConfigFile)
	return cfg, nil
}
