package core

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"starboard-bot/models"
)

func renderContext(t *testing.T) *Context {
	t.Helper()
	return NewContext(nil, nil, NewCache(), zap.NewNop())
}

func renderInputFixture() *RenderInput {
	return &RenderInput{
		Original: &models.Original{MessageID: 111, GuildID: 1, ChannelID: 5, AuthorID: 7},
		Message:  &discordgo.Message{Content: "hello"},
		Author:   &discordgo.User{ID: "7", Username: "alice"},
		Points:   3,
	}
}

func TestRenderContent(t *testing.T) {
	s := models.DefaultSettings()
	in := renderInputFixture()

	t.Run("basic point line", func(t *testing.T) {
		content := RenderContent(&s, in, false)
		assert.Equal(t, "⭐ **3 |** <#5>", content)
	})

	t.Run("ping author", func(t *testing.T) {
		ping := s
		ping.PingAuthor = true
		content := RenderContent(&ping, in, false)
		assert.Equal(t, "⭐ **3 |** <#5> (<@7>)", content)
	})

	t.Run("mention mode appends the jump link", func(t *testing.T) {
		m := s
		m.GoToMessage = models.GoToMessageMention
		content := RenderContent(&m, in, false)
		assert.Contains(t, content, "https://discord.com/channels/1/5/111")
	})

	t.Run("frozen marker", func(t *testing.T) {
		frozen := *in
		frozen.Frozen = true
		content := RenderContent(&s, &frozen, false)
		assert.Contains(t, content, "❄️")
	})

	t.Run("custom emoji renders as mention", func(t *testing.T) {
		c := s
		c.DisplayEmoji = "kek:12345"
		assert.True(t, strings.HasPrefix(RenderContent(&c, in, false), "<:kek:12345>"))
		assert.True(t, strings.HasPrefix(RenderContent(&c, in, true), "<a:kek:12345>"))
	})
}

func TestRenderPost(t *testing.T) {
	ctx := renderContext(t)

	t.Run("full render carries content and embed", func(t *testing.T) {
		rc := &ResolvedConfig{
			Starboard: &models.Starboard{ID: 1, GuildID: 1, ChannelID: 9},
			Settings:  models.DefaultSettings(),
		}
		out := ctx.RenderPost(rc, renderInputFixture())
		assert.Equal(t, "⭐ **3 |** <#5>", out.Content)
		require.NotEmpty(t, out.Embeds)
		assert.Equal(t, "hello", out.Embeds[0].Description)
		assert.Equal(t, "alice", out.Embeds[0].Author.Name)
		assert.Equal(t, rc.Settings.Color, out.Embeds[0].Color)
	})

	t.Run("unavailable message yields a placeholder embed", func(t *testing.T) {
		rc := &ResolvedConfig{
			Starboard: &models.Starboard{ID: 1, GuildID: 1, ChannelID: 9},
			Settings:  models.DefaultSettings(),
		}
		in := renderInputFixture()
		in.Message = nil
		out := ctx.RenderPost(rc, in)
		require.NotEmpty(t, out.Embeds)
		assert.Contains(t, out.Embeds[0].Description, "unavailable")
	})

	t.Run("button mode emits a link button", func(t *testing.T) {
		settings := models.DefaultSettings()
		settings.GoToMessage = models.GoToMessageButton
		rc := &ResolvedConfig{
			Starboard: &models.Starboard{ID: 1, GuildID: 1, ChannelID: 9},
			Settings:  settings,
		}
		out := ctx.RenderPost(rc, renderInputFixture())
		require.Len(t, out.Components, 1)
		row, ok := out.Components[0].(discordgo.ActionsRow)
		require.True(t, ok)
		button, ok := row.Components[0].(discordgo.Button)
		require.True(t, ok)
		assert.Equal(t, "https://discord.com/channels/1/5/111", button.URL)
	})

	t.Run("premium picks non-image files for upload", func(t *testing.T) {
		rc := &ResolvedConfig{
			Starboard: &models.Starboard{ID: 1, GuildID: 1, ChannelID: 9},
			Settings:  models.DefaultSettings(),
		}
		in := renderInputFixture()
		in.Message.Attachments = []*discordgo.MessageAttachment{
			{Filename: "clip.mp4", URL: "https://x/clip.mp4", ContentType: "video/mp4"},
			{Filename: "cat.png", URL: "https://x/cat.png", ContentType: "image/png"},
		}

		out := ctx.RenderPost(rc, in)
		assert.Empty(t, out.Uploads, "uploads are premium only")

		in.Premium = true
		out = ctx.RenderPost(rc, in)
		require.Len(t, out.Uploads, 1)
		assert.Equal(t, "clip.mp4", out.Uploads[0].Filename)
	})

	t.Run("link mode emits an embed field", func(t *testing.T) {
		rc := &ResolvedConfig{
			Starboard: &models.Starboard{ID: 1, GuildID: 1, ChannelID: 9},
			Settings:  models.DefaultSettings(),
		}
		out := ctx.RenderPost(rc, renderInputFixture())
		require.NotEmpty(t, out.Embeds[0].Fields)
		last := out.Embeds[0].Fields[len(out.Embeds[0].Fields)-1]
		assert.Contains(t, last.Value, "https://discord.com/channels/1/5/111")
	})
}

func TestImageSelection(t *testing.T) {
	t.Run("image attachment wins", func(t *testing.T) {
		msg := &discordgo.Message{
			Attachments: []*discordgo.MessageAttachment{
				{Filename: "notes.txt", URL: "https://x/notes.txt", ContentType: "text/plain"},
				{Filename: "cat.png", URL: "https://x/cat.png", ContentType: "image/png"},
			},
		}
		assert.Equal(t, "https://x/cat.png", primaryImageURL(msg))
		assert.True(t, MessageHasImage(msg))
	})

	t.Run("image-only embed is used when no attachment", func(t *testing.T) {
		msg := &discordgo.Message{
			Embeds: []*discordgo.MessageEmbed{
				{Type: discordgo.EmbedTypeImage, Image: &discordgo.MessageEmbedImage{URL: "https://x/a.gif"}},
			},
		}
		assert.Equal(t, "https://x/a.gif", primaryImageURL(msg))
	})

	t.Run("rich embeds are not images", func(t *testing.T) {
		msg := &discordgo.Message{
			Embeds: []*discordgo.MessageEmbed{
				{Type: discordgo.EmbedTypeRich, Title: "hi", Description: "there"},
			},
		}
		assert.Equal(t, "", primaryImageURL(msg))
		assert.False(t, MessageHasImage(msg))
	})

	t.Run("nil message has no image", func(t *testing.T) {
		assert.False(t, MessageHasImage(nil))
	})
}

func TestThreadName(t *testing.T) {
	in := renderInputFixture()
	assert.Equal(t, "hello", ThreadName(in))

	in.Message.Content = strings.Repeat("a", 300)
	name := ThreadName(in)
	assert.LessOrEqual(t, len([]rune(name)), 100)

	in.Message = nil
	assert.Equal(t, "Starred message from alice", ThreadName(in))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	out := truncate(strings.Repeat("x", 50), 10)
	assert.Equal(t, 10, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "…"))
}
