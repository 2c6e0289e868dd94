package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMINI_BASE_URL", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL",
	"AI_PROVIDER", "DISCORD_BOT_TOKEN", "DISCORD_CHANNEL_ID", "DISCORD_OWNER_IDS", "CONCIERGE_LOG_LEVEL",
}

// isolate unsets every variable Load reads and points it at an empty dir.
// The previous values come back when the test ends.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	prev := dotEnvPath
	dotEnvPath = filepath.Join(dir, ".env")
	t.Cleanup(func() { dotEnvPath = prev })
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, 2.0, cfg.Generation.Temperature)
	require.Equal(t, 0.95, cfg.Generation.TopP)
	require.Equal(t, 40, cfg.Generation.TopK)
	require.Equal(t, 8192, cfg.Generation.MaxOutputTokens)
	require.Equal(t, 60*time.Second, cfg.Generation.RequestTimeout)
	require.Equal(t, 5, cfg.Chat.MaxToolRounds)
	require.Contains(t, cfg.Chat.SystemPrompt, "Stay Heaven")
	require.NotEmpty(t, cfg.Hotels)
	require.True(t, cfg.Transcript.Enabled)
	require.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_YAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "concierge.yaml")
	writeFile(t, path, `
ai:
  provider: claude
claude:
  model: claude-test
generation:
  temperature: 0.7
  request_timeout: 15s
chat:
  max_tool_rounds: 8
  rate_window: 30s
hotels:
  - name: Sunrise Inn
    city: Goa
    rooms: 2
    nightly_rate: 99.5
tools:
  commands:
    - name: weather
      description: current weather
      run: ["./weather.sh"]
      timeout: 3s
      params:
        - name: city
          type: string
          required: true
transcript:
  enabled: false
log:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "claude", cfg.AI.Provider)
	require.Equal(t, "claude-test", cfg.Claude.Model)
	require.Equal(t, 0.7, cfg.Generation.Temperature)
	require.Equal(t, 0.95, cfg.Generation.TopP, "unset keys keep defaults")
	require.Equal(t, 15*time.Second, cfg.Generation.RequestTimeout)
	require.Equal(t, 8, cfg.Chat.MaxToolRounds)
	require.Equal(t, 30*time.Second, cfg.Chat.RateWindow)
	require.Len(t, cfg.Hotels, 1)
	require.Equal(t, 99.5, cfg.Hotels[0].NightlyRate)
	require.Len(t, cfg.Tools.Commands, 1)
	cmd := cfg.Tools.Commands[0]
	require.Equal(t, []string{"./weather.sh"}, cmd.Run)
	require.Equal(t, 3*time.Second, cmd.Timeout)
	require.True(t, cmd.Params[0].Required)
	require.False(t, cfg.Transcript.Enabled)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "concierge.yaml")
	writeFile(t, path, "gemini:\n  api_key: from-file\ndiscord:\n  channel_id: \"1\"\n")

	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("DISCORD_CHANNEL_ID", "42")
	t.Setenv("DISCORD_OWNER_IDS", " a, ,b ")
	t.Setenv("AI_PROVIDER", "gemini")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gemini-key", cfg.Gemini.APIKey)
	require.Equal(t, "42", cfg.Discord.ChannelID)
	require.Equal(t, []string{"a", "b"}, cfg.Discord.OwnerIDs)
	require.Equal(t, "gemini", cfg.AI.Provider)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dotEnvPath, "ANTHROPIC_API_KEY=from-dotenv\nOPENAI_API_KEY=\"dotenv-openai\"\n")
	t.Setenv("ANTHROPIC_API_KEY", "from-env")

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Claude.APIKey)
	require.Equal(t, "dotenv-openai", cfg.OpenAI.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"provider", "ai:\n  provider: llama\n", "ai.provider"},
		{"temperature", "generation:\n  temperature: 3\n", "generation.temperature"},
		{"top_p", "generation:\n  top_p: 1.5\n", "generation.top_p"},
		{"rounds", "chat:\n  max_tool_rounds: 0\n", "chat.max_tool_rounds"},
		{"hotel name", "hotels:\n  - rooms: 1\n", "hotels[0]"},
		{"command run", "tools:\n  commands:\n    - name: x\n", "tools.commands[0] x"},
		{"log format", "log:\n  format: xml\n", "log.format"},
		{"yaml syntax", "chat: [", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, "concierge.yaml")
			writeFile(t, path, tt.yaml)

			_, err := Load(path)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRequireDiscord(t *testing.T) {
	cfg := defaults()
	require.ErrorContains(t, cfg.RequireDiscord(), "DISCORD_BOT_TOKEN")

	cfg.Discord.BotToken = "token"
	require.ErrorContains(t, cfg.RequireDiscord(), "DISCORD_CHANNEL_ID")

	cfg.Discord.ChannelID = "42"
	require.NoError(t, cfg.RequireDiscord())
}
