package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/moorebrett0/concierge/internal/brain"
	"github.com/moorebrett0/concierge/internal/chat"
	"github.com/moorebrett0/concierge/internal/config"
	"github.com/moorebrett0/concierge/internal/console"
	"github.com/moorebrett0/concierge/internal/conversation"
	"github.com/moorebrett0/concierge/internal/discord"
	"github.com/moorebrett0/concierge/internal/hotel"
	"github.com/moorebrett0/concierge/internal/logging"
	"github.com/moorebrett0/concierge/internal/onboarding"
	"github.com/moorebrett0/concierge/internal/shell"
	"github.com/moorebrett0/concierge/internal/tool"
	"github.com/moorebrett0/concierge/internal/transcript"
)

func buildApp() *cli.App {
	var cfg *config.Config

	return &cli.App{
		Name:  "concierge",
		Usage: "hotel booking assistant backed by a language model and local tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"CONCIERGE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log.level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Usage:   "disable colored log output",
				EnvVars: []string{"NO_COLOR"},
			},
		},
		Before: func(c *cli.Context) error {
			loaded, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if lvl := c.String("log-level"); lvl != "" {
				loaded.Log.Level = lvl
			}
			logger, err := logging.New(c.App.ErrWriter, loaded.Log.Level, loaded.Log.Format, c.Bool("no-color"))
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			cfg = loaded
			return nil
		},
		Action: func(c *cli.Context) error {
			return runChat(c, cfg, "")
		},
		Commands: []*cli.Command{
			{
				Name:  "chat",
				Usage: "talk to the concierge in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "resume", Usage: "continue a stored conversation by id"},
				},
				Action: func(c *cli.Context) error {
					return runChat(c, cfg, c.String("resume"))
				},
			},
			{
				Name:  "discord",
				Usage: "serve the concierge in a Discord channel",
				Action: func(c *cli.Context) error {
					return runDiscord(c.Context, cfg)
				},
			},
			{
				Name:      "history",
				Usage:     "list stored conversations, or print one",
				ArgsUsage: "[conversation-id]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of conversations to list"},
				},
				Action: func(c *cli.Context) error {
					return runHistory(c, cfg, c.Args().First(), c.Int("limit"))
				},
			},
			{
				Name:  "tools",
				Usage: "list the tools the model can call",
				Action: func(c *cli.Context) error {
					reg, err := buildRegistry(cfg)
					if err != nil {
						return err
					}
					printTools(c.App.Writer, reg.DescribeAll())
					return nil
				},
			},
		},
	}
}

// buildRegistry registers the hotel tools and any configured commands.
func buildRegistry(cfg *config.Config) (*tool.Registry, error) {
	reg := tool.New()
	if err := hotel.NewInventory(cfg.Hotels).Register(reg); err != nil {
		return nil, fmt.Errorf("registering hotel tools: %w", err)
	}
	exec := shell.New(cfg.Tools.Timeout, cfg.Tools.MaxOutputBytes)
	if err := exec.Register(reg, cfg.Tools.Commands); err != nil {
		return nil, fmt.Errorf("registering command tools: %w", err)
	}
	return reg, nil
}

func newProvider(ctx context.Context, cfg *config.Config) (brain.Provider, error) {
	return brain.New(ctx, brain.Config{
		GeminiAPIKey:  cfg.Gemini.APIKey,
		GeminiModel:   cfg.Gemini.Model,
		GeminiBaseURL: cfg.Gemini.BaseURL,
		ClaudeAPIKey:  cfg.Claude.APIKey,
		ClaudeModel:   cfg.Claude.Model,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
		OpenAIModel:   cfg.OpenAI.Model,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
		Provider:      cfg.AI.Provider,
		Params: brain.Params{
			Temperature:     cfg.Generation.Temperature,
			TopP:            cfg.Generation.TopP,
			TopK:            cfg.Generation.TopK,
			MaxOutputTokens: cfg.Generation.MaxOutputTokens,
		},
		Timeout: cfg.Generation.RequestTimeout,
	})
}

// openTranscript returns nil when the transcript is disabled.
func openTranscript(cfg *config.Config) (*transcript.Store, error) {
	if !cfg.Transcript.Enabled {
		return nil, nil
	}
	ts, err := transcript.Open(cfg.Transcript.Path)
	if err != nil {
		return nil, err
	}
	slog.Debug("transcript: opened", "path", cfg.Transcript.Path)
	return ts, nil
}

func chatOptions(cfg *config.Config, say func(string)) chat.Options {
	return chat.Options{
		System:     cfg.Chat.SystemPrompt,
		MaxRounds:  cfg.Chat.MaxToolRounds,
		RateLimit:  cfg.Chat.RateLimit,
		RateWindow: cfg.Chat.RateWindow,
		Say:        say,
	}
}

func storeOptions(ts *transcript.Store) []conversation.Option {
	if ts == nil {
		return nil
	}
	return []conversation.Option{conversation.WithJournal(ts)}
}

func runChat(c *cli.Context, cfg *config.Config, resume string) error {
	ctx := c.Context

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	ts, err := openTranscript(cfg)
	if err != nil {
		return err
	}
	if ts != nil {
		defer ts.Close()
	}

	var store *conversation.Store
	if resume != "" {
		if ts == nil {
			return errors.New("--resume needs the transcript to be enabled")
		}
		turns, err := ts.Load(ctx, resume)
		if err != nil {
			return err
		}
		if len(turns) == 0 {
			return fmt.Errorf("conversation %s not found", resume)
		}
		store = conversation.Restore(resume, turns, storeOptions(ts)...)
		slog.Info("chat: resumed conversation", "conversation", resume, "turns", len(turns))
	} else {
		store = conversation.New("", storeOptions(ts)...)
	}

	out := c.App.Writer
	onboarding.PrintStartup(out,
		fmt.Sprintf("conversation %s. type /quit to leave.", store.ID()),
		[]onboarding.Check{
			{Label: fmt.Sprintf("ai connected (%s)", provider.Name()), OK: true},
			{Label: fmt.Sprintf("%d tools registered", reg.Len()), OK: reg.Len() > 0},
			{Label: "transcript enabled", OK: ts != nil},
		})
	o := chat.New(provider, reg, store, chatOptions(cfg, console.Printer(out)))
	return console.Run(ctx, c.App.Reader, out, o)
}

func runDiscord(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireDiscord(); err != nil {
		return err
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	ts, err := openTranscript(cfg)
	if err != nil {
		return err
	}
	if ts != nil {
		defer ts.Close()
	}

	bot, err := discord.NewBot(cfg.Discord.BotToken, cfg.Discord.ChannelID, cfg.Discord.OwnerIDs)
	if err != nil {
		return err
	}
	router := discord.NewRouter(ctx, bot, func(_ string, say func(string)) *chat.Orchestrator {
		store := conversation.New("", storeOptions(ts)...)
		return chat.New(provider, reg, store, chatOptions(cfg, say))
	}, reg.DescribeAll())
	bot.SetRouter(router)

	slog.Info("discord: starting", "channel", bot.ChannelID(), "tools", reg.Len())
	return bot.Start(ctx)
}

func runHistory(c *cli.Context, cfg *config.Config, id string, limit int) error {
	ts, err := openTranscript(cfg)
	if err != nil {
		return err
	}
	if ts == nil {
		return errors.New("the transcript is disabled")
	}
	defer ts.Close()

	out := c.App.Writer
	if id == "" {
		summaries, err := ts.List(c.Context, limit)
		if err != nil {
			return err
		}
		printSummaries(out, summaries)
		return nil
	}

	turns, err := ts.Load(c.Context, id)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return fmt.Errorf("conversation %s not found", id)
	}
	for _, t := range turns {
		fmt.Fprintln(out, formatTurn(t))
	}
	return nil
}

func printTools(w io.Writer, tools []tool.Descriptor) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPARAMS\tDESCRIPTION")
	for _, d := range tools {
		params := make([]string, 0, len(d.Params))
		for _, p := range d.Params {
			name := p.Name + ":" + p.Type
			if !p.Required {
				name += "?"
			}
			params = append(params, name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, strings.Join(params, " "), d.Description)
	}
	tw.Flush()
}

func printSummaries(w io.Writer, summaries []transcript.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No conversations yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTURNS\tLAST ACTIVITY")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.ID, s.Turns, s.LastActivity.Local().Format(time.DateTime))
	}
	tw.Flush()
}

// formatTurn renders one stored turn on a single line.
func formatTurn(t conversation.Turn) string {
	switch {
	case t.Call != nil:
		return fmt.Sprintf("%s: call %s(%s) [%s]", t.Role, t.Call.Name, compactJSON(t.Call.Args), t.Call.ID)
	case t.Result != nil:
		r := t.Result
		if r.IsError {
			return fmt.Sprintf("%s: %s failed (%s): %s", t.Role, r.Name, r.Reason, compactJSON(r.Content))
		}
		return fmt.Sprintf("%s: %s -> %s", t.Role, r.Name, compactJSON(r.Content))
	default:
		return fmt.Sprintf("%s: %s", t.Role, t.Text)
	}
}

func compactJSON(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
