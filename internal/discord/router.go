package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/concierge/internal/chat"
	"github.com/moorebrett0/concierge/internal/tool"
)

// Messenger is the part of the Discord session the router talks through.
type Messenger interface {
	SendMessage(channelID, text string)
	Respond(i *discordgo.Interaction, content string, ephemeral bool)
	IsOwner(userID string) bool
	BotUserID() string
}

// NewConversation creates the orchestrator for a channel. say posts surfaced
// text back to that channel.
type NewConversation func(channelID string, say func(string)) *chat.Orchestrator

// Router dispatches Discord messages and slash commands. Each channel gets
// its own conversation; messages in one channel are answered in order.
type Router struct {
	bot             Messenger
	newConversation NewConversation
	tools           []tool.Descriptor
	ctx             context.Context

	mu            sync.Mutex
	conversations map[string]*chat.Orchestrator
}

// NewRouter creates a router. ctx bounds every chain it starts.
func NewRouter(ctx context.Context, bot Messenger, newConversation NewConversation, tools []tool.Descriptor) *Router {
	return &Router{
		bot:             bot,
		newConversation: newConversation,
		tools:           tools,
		ctx:             ctx,
		conversations:   make(map[string]*chat.Orchestrator),
	}
}

// conversation returns the channel's orchestrator, creating it on first use.
func (r *Router) conversation(channelID string) *chat.Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.conversations[channelID]; ok {
		return o
	}
	o := r.newConversation(channelID, func(text string) {
		r.bot.SendMessage(channelID, text)
	})
	r.conversations[channelID] = o
	slog.Info("discord: new conversation", "channel", channelID, "conversation", o.Conversation().ID())
	return o
}

func (r *Router) reset(channelID string) {
	r.mu.Lock()
	delete(r.conversations, channelID)
	r.mu.Unlock()
}

// HandleMessage answers a free-form channel message.
func (r *Router) HandleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !r.bot.IsOwner(m.Author.ID) {
		slog.Debug("discord: ignoring message from non-owner", "user", m.Author.ID)
		return
	}

	text := stripMention(m.Content, r.bot.BotUserID())
	if text == "" {
		return
	}
	r.ask(m.ChannelID, text)
}

// HandleInteraction dispatches a slash command interaction.
func (r *Router) HandleInteraction(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if !r.bot.IsOwner(interactionUserID(i)) {
		r.bot.Respond(i.Interaction, "Sorry, I only take requests from my owners.", true)
		return
	}

	switch data.Name {
	case "ask":
		var question string
		for _, opt := range data.Options {
			if opt.Name == "question" && opt.Type == discordgo.ApplicationCommandOptionString {
				question = strings.TrimSpace(opt.StringValue())
			}
		}
		if question == "" {
			r.bot.Respond(i.Interaction, "Ask me something, e.g. `/ask question: is Sunrise Inn available?`", true)
			return
		}
		r.bot.Respond(i.Interaction, "> "+question, false)
		r.ask(i.ChannelID, question)

	case "reset":
		r.reset(i.ChannelID)
		r.bot.Respond(i.Interaction, "Started a new conversation.", false)

	case "tools":
		r.bot.Respond(i.Interaction, toolList(r.tools), true)

	case "help":
		r.bot.Respond(i.Interaction, helpText, true)

	default:
		r.bot.Respond(i.Interaction, "Unknown command.", true)
	}
}

func (r *Router) ask(channelID, text string) {
	o := r.conversation(channelID)
	if _, err := o.Ask(r.ctx, text); err != nil {
		// The orchestrator has already told the channel what went wrong.
		slog.Warn("discord: chain ended with error", "channel", channelID, "err", err)
	}
}

const helpText = "Talk to me in this channel and I'll answer, looking things up with my tools when needed.\n" +
	"`/ask` ask a question\n" +
	"`/reset` start a new conversation\n" +
	"`/tools` list my tools"

func toolList(tools []tool.Descriptor) string {
	if len(tools) == 0 {
		return "I have no tools right now."
	}
	var sb strings.Builder
	sb.WriteString("I can use:\n")
	for _, d := range tools {
		if d.Description != "" {
			fmt.Fprintf(&sb, "- `%s`: %s\n", d.Name, d.Description)
		} else {
			fmt.Fprintf(&sb, "- `%s`\n", d.Name)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// stripMention removes the bot's @mention from message text.
func stripMention(text, botID string) string {
	if botID != "" {
		// Discord mentions look like <@123456> or <@!123456>
		text = strings.ReplaceAll(text, "<@"+botID+">", "")
		text = strings.ReplaceAll(text, "<@!"+botID+">", "")
	}
	return strings.TrimSpace(text)
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
