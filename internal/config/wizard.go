package config

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .ungana.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to ungana! Let's configure case generation.")
	fmt.Println()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)

	// 2. Quality tier.
	qualityPrompt := promptui.Select{
		Label: "Select quality tier",
		Items: []string{
			"lite   — fast & cheap (gpt-4o-mini / llama3)",
			"normal — balanced (gpt-4o / llama3)",
			"max    — highest quality (gpt-4 / llama3:70b)",
		},
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	quality := tiers[qualityIdx]

	preset := GetPreset(provider, quality)

	// 3. Default difficulty for generated cases.
	difficultyPrompt := promptui.Select{
		Label: "Default case difficulty",
		Items: []string{"student", "resident", "specialist"},
	}
	_, difficulty, err := difficultyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("difficulty selection: %w", err)
	}

	// 4. Output language.
	languagePrompt := promptui.Prompt{
		Label:   "Output language (leave blank for English)",
		Default: "",
	}
	language, err := languagePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("language: %w", err)
	}

	// 5. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for saved cases and history",
		Default: ".ungana",
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// Build the config.
	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Model = preset.Model
	cfg.EmbeddingProvider = provider
	cfg.EmbeddingModel = preset.EmbeddingModel
	cfg.Quality = quality
	cfg.Difficulty = difficulty
	cfg.Language = language
	cfg.DataDir = dataDir

	// Check for API key.
	envVar := APIKeyEnvVar(provider)
	if envVar != "" {
		if os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running ungana generate.\n", envVar)
		}
	}

	// Save to .ungana.yml.
	configPath := ".ungana.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
