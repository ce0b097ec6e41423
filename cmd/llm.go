package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/tm/internal/llm"
)

// anthropicKey returns the configured API key and where it came from.
// anthropic.api_key (config file or TM_ANTHROPIC_API_KEY) wins over the
// plain ANTHROPIC_API_KEY variable.
func anthropicKey() (key, source string) {
	if key = viper.GetString("anthropic.api_key"); key != "" {
		if os.Getenv("TM_ANTHROPIC_API_KEY") != "" {
			return key, "TM_ANTHROPIC_API_KEY"
		}
		return key, "anthropic.api_key"
	}
	if key = os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, "ANTHROPIC_API_KEY"
	}
	return "", ""
}

// newLLMClient returns a task extraction client, or nil when no key is set.
func newLLMClient() *llm.Client {
	key, source := anthropicKey()
	if key == "" {
		return nil
	}
	ui.VerboseLog("using Anthropic key from %s", source)
	return llm.NewClient(key, viper.GetString("anthropic.model"))
}
