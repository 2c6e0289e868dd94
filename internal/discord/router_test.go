package discord

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"github.com/moorebrett0/concierge/internal/brain/braintest"
	"github.com/moorebrett0/concierge/internal/chat"
	"github.com/moorebrett0/concierge/internal/conversation"
	"github.com/moorebrett0/concierge/internal/tool"
)

type sent struct {
	channel string
	text    string
}

type fakeMessenger struct {
	mu        sync.Mutex
	messages  []sent
	responses []string
	ephemeral []bool
	owners    map[string]bool
}

func (f *fakeMessenger) SendMessage(channelID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sent{channelID, text})
}

func (f *fakeMessenger) Respond(_ *discordgo.Interaction, content string, ephemeral bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, content)
	f.ephemeral = append(f.ephemeral, ephemeral)
}

func (f *fakeMessenger) IsOwner(userID string) bool {
	return len(f.owners) == 0 || f.owners[userID]
}

func (f *fakeMessenger) BotUserID() string { return "bot-1" }

type harness struct {
	messenger *fakeMessenger
	router    *Router
	provider  *braintest.ScriptedProvider
	created   []string
}

func newHarness(t *testing.T, responses ...braintest.Response) *harness {
	t.Helper()
	h := &harness{messenger: &fakeMessenger{}}
	h.provider = braintest.NewScriptedProvider(responses...)
	reg := tool.New()
	reg.MustRegister(tool.Descriptor{Name: "get_date", Description: "today's date"}, func(context.Context, tool.Args) (any, error) {
		return "2024-06-01", nil
	})
	h.router = NewRouter(context.Background(), h.messenger, func(channelID string, say func(string)) *chat.Orchestrator {
		h.created = append(h.created, channelID)
		return chat.New(h.provider, reg, conversation.New(""), chat.Options{Say: say})
	}, reg.DescribeAll())
	return h
}

func message(channel, author, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: channel,
		Content:   content,
		Author:    &discordgo.User{ID: author},
	}}
}

func command(channel, user, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: channel,
		Member:    &discordgo.Member{User: &discordgo.User{ID: user}},
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func TestHandleMessage_RepliesInChannel(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		braintest.Calls("One moment.", conversation.ToolCall{ID: "1", Name: "get_date"}),
		braintest.Text("Today is June 1st."),
	)

	h.router.HandleMessage(message("c1", "u1", "<@bot-1> what day is it?"))

	require.Equal(t, []sent{{"c1", "One moment."}, {"c1", "Today is June 1st."}}, h.messenger.messages)
	require.Equal(t, "what day is it?", h.provider.Requests()[0].Input[0].Text)
}

func TestHandleMessage_OneConversationPerChannel(t *testing.T) {
	t.Parallel()

	h := newHarness(t, braintest.Text("ok"))
	h.provider.Repeat = true

	h.router.HandleMessage(message("c1", "u1", "first"))
	h.router.HandleMessage(message("c1", "u1", "second"))
	h.router.HandleMessage(message("c2", "u1", "elsewhere"))

	require.Equal(t, []string{"c1", "c2"}, h.created)
	reqs := h.provider.Requests()
	require.Len(t, reqs[1].History, 2, "c1 keeps its history")
	require.Empty(t, reqs[2].History, "c2 starts fresh")
}

func TestHandleMessage_Ignores(t *testing.T) {
	t.Parallel()

	h := newHarness(t, braintest.Text("unused"))
	h.messenger.owners = map[string]bool{"owner": true}

	botMsg := message("c1", "other-bot", "hello")
	botMsg.Author.Bot = true
	h.router.HandleMessage(botMsg)
	h.router.HandleMessage(message("c1", "stranger", "hello"))
	h.router.HandleMessage(message("c1", "owner", "<@bot-1>"))

	require.Empty(t, h.messenger.messages)
	require.Empty(t, h.provider.Requests())
}

func TestHandleMessage_BackendErrorIsReported(t *testing.T) {
	t.Parallel()

	h := newHarness(t, braintest.Fail(context.DeadlineExceeded))
	h.router.HandleMessage(message("c1", "u1", "hi"))

	require.Len(t, h.messenger.messages, 1)
	require.Contains(t, h.messenger.messages[0].text, "try again")
}

func TestHandleInteraction_Ask(t *testing.T) {
	t.Parallel()

	h := newHarness(t, braintest.Text("Sunrise Inn is available."))
	h.router.HandleInteraction(command("c1", "u1", "ask", &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "question",
		Type:  discordgo.ApplicationCommandOptionString,
		Value: "Is Sunrise Inn available?",
	}))

	require.Equal(t, []string{"> Is Sunrise Inn available?"}, h.messenger.responses)
	require.Equal(t, []sent{{"c1", "Sunrise Inn is available."}}, h.messenger.messages)
}

func TestHandleInteraction_ResetStartsNewConversation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, braintest.Text("ok"))
	h.provider.Repeat = true

	h.router.HandleMessage(message("c1", "u1", "first"))
	h.router.HandleInteraction(command("c1", "u1", "reset"))
	h.router.HandleMessage(message("c1", "u1", "second"))

	require.Equal(t, []string{"c1", "c1"}, h.created)
	require.Empty(t, h.provider.Requests()[1].History)
	require.Equal(t, []string{"Started a new conversation."}, h.messenger.responses)
}

func TestHandleInteraction_ToolsHelpAndOwners(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.router.HandleInteraction(command("c1", "u1", "tools"))
	h.router.HandleInteraction(command("c1", "u1", "help"))
	h.router.HandleInteraction(command("c1", "u1", "ask"))

	require.Len(t, h.messenger.responses, 3)
	require.Contains(t, h.messenger.responses[0], "`get_date`: today's date")
	require.Contains(t, h.messenger.responses[1], "/reset")
	require.Contains(t, h.messenger.responses[2], "Ask me something")
	require.Equal(t, []bool{true, true, true}, h.messenger.ephemeral)

	h.messenger.owners = map[string]bool{"owner": true}
	h.router.HandleInteraction(command("c1", "stranger", "tools"))
	require.Contains(t, h.messenger.responses[3], "only take requests")
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	require.Nil(t, splitMessage("", 10))
	require.Equal(t, []string{"short"}, splitMessage("short", 10))

	lines := strings.Repeat("line of text\n", 300)
	chunks := splitMessage(lines, maxMessageLen)
	require.Greater(t, len(chunks), 1)
	require.Equal(t, lines, strings.Join(chunks, ""))
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), maxMessageLen)
		require.True(t, strings.HasSuffix(c, "\n"))
	}

	runes := strings.Repeat("é", 1500)
	chunks = splitMessage(runes, maxMessageLen)
	require.Equal(t, runes, strings.Join(chunks, ""))
	for _, c := range chunks {
		require.True(t, utf8.ValidString(c))
	}
}
