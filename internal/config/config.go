package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/moorebrett0/concierge/internal/hotel"
	"github.com/moorebrett0/concierge/internal/shell"
)

// dotEnvPath is the .env file read before environment overrides.
var dotEnvPath = ".env"

type Config struct {
	AI         AIConfig         `yaml:"ai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Claude     ClaudeConfig     `yaml:"claude"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Generation GenerationConfig `yaml:"generation"`
	Chat       ChatConfig       `yaml:"chat"`
	Hotels     []hotel.Hotel    `yaml:"hotels"`
	Tools      ToolsConfig      `yaml:"tools"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Discord    DiscordConfig    `yaml:"discord"`
	Log        LogConfig        `yaml:"log"`
}

type AIConfig struct {
	Provider string `yaml:"provider"` // "gemini", "claude", "openai", or "" (auto-detect)
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"` // proxy or regional endpoint
}

type ClaudeConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"` // any OpenAI-compatible server
}

type GenerationConfig struct {
	Temperature     float64       `yaml:"temperature"`
	TopP            float64       `yaml:"top_p"`
	TopK            int           `yaml:"top_k"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type ChatConfig struct {
	SystemPrompt  string `yaml:"system_prompt"`
	MaxToolRounds int    `yaml:"max_tool_rounds"`
	// Sliding window rate limiter, per conversation
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type ToolsConfig struct {
	Timeout        time.Duration   `yaml:"timeout"`
	MaxOutputBytes int             `yaml:"max_output_bytes"`
	Commands       []shell.Command `yaml:"commands"`
}

type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type DiscordConfig struct {
	BotToken  string   `yaml:"bot_token"`
	ChannelID string   `yaml:"channel_id"`
	OwnerIDs  []string `yaml:"owner_ids"` // empty means anyone in the channel
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

const defaultSystemPrompt = `You are the concierge for Stay Heaven, a hotel booking platform.
Greet the user warmly and keep answers short.
When the user asks about a hotel, call check_hotel before answering.
Use get_date to resolve relative dates like "tomorrow" before booking.
Only call book_hotel once the user has confirmed the hotel, dates, guests and rooms.`

func Load(path string) (*Config, error) {
	cfg := defaults()

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", dotEnvPath, err)
	}

	// Load YAML config if it exists
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// File doesn't exist, use defaults + env vars
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv lets the environment override the file; secrets live in .env or
// the environment.
func applyEnv(cfg *Config) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&cfg.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	set(&cfg.Gemini.BaseURL, "GEMINI_BASE_URL")
	set(&cfg.Claude.APIKey, "ANTHROPIC_API_KEY")
	set(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&cfg.AI.Provider, "AI_PROVIDER")
	set(&cfg.Discord.BotToken, "DISCORD_BOT_TOKEN")
	set(&cfg.Discord.ChannelID, "DISCORD_CHANNEL_ID")
	set(&cfg.Log.Level, "CONCIERGE_LOG_LEVEL")

	if env := os.Getenv("DISCORD_OWNER_IDS"); env != "" {
		// Comma-separated list of IDs
		var cleaned []string
		for _, id := range strings.Split(env, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cleaned = append(cleaned, id)
			}
		}
		if len(cleaned) > 0 {
			cfg.Discord.OwnerIDs = cleaned
		}
	}
}

func defaults() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Claude: ClaudeConfig{
			Model: "claude-sonnet-4-5-20250929",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Generation: GenerationConfig{
			Temperature:     2,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 8192,
			RequestTimeout:  60 * time.Second,
		},
		Chat: ChatConfig{
			SystemPrompt:  defaultSystemPrompt,
			MaxToolRounds: 5,
			RateLimit:     10,
			RateWindow:    time.Minute,
		},
		Hotels: []hotel.Hotel{
			{Name: "Sunrise Inn", City: "Goa", Rooms: 12, NightlyRate: 85},
			{Name: "Harbor View", City: "Kochi", Rooms: 6, NightlyRate: 140},
			{Name: "Maple Lodge", City: "Shimla", Rooms: 4, NightlyRate: 110},
		},
		Tools: ToolsConfig{
			Timeout:        10 * time.Second,
			MaxOutputBytes: 10240,
		},
		Transcript: TranscriptConfig{
			Enabled: true,
			Path:    "data/concierge.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.AI.Provider) {
	case "", "gemini", "claude", "openai":
	default:
		return fmt.Errorf("ai.provider must be gemini, claude or openai, got %q", cfg.AI.Provider)
	}

	g := cfg.Generation
	switch {
	case g.Temperature < 0 || g.Temperature > 2:
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %v", g.Temperature)
	case g.TopP < 0 || g.TopP > 1:
		return fmt.Errorf("generation.top_p must be between 0 and 1, got %v", g.TopP)
	case g.TopK < 0:
		return fmt.Errorf("generation.top_k must not be negative, got %d", g.TopK)
	case g.MaxOutputTokens <= 0:
		return fmt.Errorf("generation.max_output_tokens must be positive, got %d", g.MaxOutputTokens)
	case g.RequestTimeout <= 0:
		return fmt.Errorf("generation.request_timeout must be positive, got %s", g.RequestTimeout)
	}

	if cfg.Chat.MaxToolRounds < 1 {
		return fmt.Errorf("chat.max_tool_rounds must be at least 1, got %d", cfg.Chat.MaxToolRounds)
	}
	if cfg.Chat.RateLimit < 0 {
		return fmt.Errorf("chat.rate_limit must not be negative, got %d", cfg.Chat.RateLimit)
	}
	if cfg.Chat.RateLimit > 0 && cfg.Chat.RateWindow <= 0 {
		return fmt.Errorf("chat.rate_window must be positive when rate_limit is set")
	}

	for i, h := range cfg.Hotels {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("hotels[%d]: name is required", i)
		}
		if h.Rooms < 0 {
			return fmt.Errorf("hotels[%d] %s: rooms must not be negative", i, h.Name)
		}
	}
	for i, c := range cfg.Tools.Commands {
		if c.Name == "" {
			return fmt.Errorf("tools.commands[%d]: name is required", i)
		}
		if len(c.Run) == 0 {
			return fmt.Errorf("tools.commands[%d] %s: run is required", i, c.Name)
		}
	}

	if cfg.Transcript.Enabled && cfg.Transcript.Path == "" {
		return fmt.Errorf("transcript.path is required when the transcript is enabled")
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}

// RequireDiscord checks the settings only the Discord surface needs.
func (c *Config) RequireDiscord() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("missing DISCORD_BOT_TOKEN")
	}
	if c.Discord.ChannelID == "" {
		return fmt.Errorf("missing DISCORD_CHANNEL_ID")
	}
	return nil
}
