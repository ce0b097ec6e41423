package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestAnthropicKey_Precedence(t *testing.T) {
	testEnv(t)
	bindEnv()
	t.Setenv("TM_ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	key, source := anthropicKey()
	assert.Empty(t, key)
	assert.Empty(t, source)
	assert.Nil(t, newLLMClient())

	t.Setenv("ANTHROPIC_API_KEY", "plain")
	key, source = anthropicKey()
	assert.Equal(t, "plain", key)
	assert.Equal(t, "ANTHROPIC_API_KEY", source)

	viper.Set("anthropic.api_key", "from-config")
	key, source = anthropicKey()
	assert.Equal(t, "from-config", key)
	assert.Equal(t, "anthropic.api_key", source)
	assert.NotNil(t, newLLMClient())
}

func TestAnthropicKey_TMEnv(t *testing.T) {
	testEnv(t)
	bindEnv()
	t.Setenv("ANTHROPIC_API_KEY", "plain")
	t.Setenv("TM_ANTHROPIC_API_KEY", "scoped")

	key, source := anthropicKey()
	assert.Equal(t, "scoped", key)
	assert.Equal(t, "TM_ANTHROPIC_API_KEY", source)
}

func TestBindEnv_NestedKeys(t *testing.T) {
	testEnv(t)
	bindEnv()
	t.Setenv("TM_SERVER_PORT", "9191")

	assert.Equal(t, 9191, viper.GetInt("server.port"))
}
