package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("CHATBEES_API_KEY", "")
	t.Setenv("CHATBEES_ACCOUNT_ID", "")
	t.Setenv("CHATBEES_NAMESPACE", "")
	t.Setenv("CHATBEES_TIMEOUT", "")

	cfg := FromEnv()

	require.Equal(t, "", cfg.APIKey)
	require.Equal(t, PublicAccount, cfg.AccountID)
	require.Equal(t, PublicNamespace, cfg.Namespace)
	require.Equal(t, 60*time.Second, cfg.Timeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CHATBEES_API_KEY", "key")
	t.Setenv("CHATBEES_ACCOUNT_ID", "acme")
	t.Setenv("CHATBEES_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_REQUESTS", "7")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg := FromEnv()

	require.Equal(t, "key", cfg.APIKey)
	require.Equal(t, "acme", cfg.AccountID)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, 7, cfg.RateLimitRequests)
	require.True(t, cfg.NATSEnabled)
	require.Equal(t, 30*time.Second, cfg.ServerReadTimeout)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CHATBEES_NAMESPACE=from-dotenv\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// godotenv does not override variables that are already set.
	t.Setenv("CHATBEES_NAMESPACE", "")
	require.NoError(t, os.Unsetenv("CHATBEES_NAMESPACE"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.Namespace)
}

func TestLoad_WithoutDotEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	require.NoError(t, err)
}

func TestLLMAPIKey(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "sk-openai", AnthropicAPIKey: "sk-ant"}

	require.Empty(t, cfg.LLMAPIKey())

	cfg.LLMProvider = "anthropic"
	require.Equal(t, "sk-ant", cfg.LLMAPIKey())

	cfg.LLMProvider = "openai"
	require.Equal(t, "sk-openai", cfg.LLMAPIKey())
}
