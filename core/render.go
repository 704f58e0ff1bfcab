package core

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"starboard-bot/models"
)

const (
	embedDescriptionLimit = 4096
	forumThreadNameLimit  = 100
	maxExtraEmbeds        = 9
)

// imageProviders whose link embeds are treated as images even when the embed
// type is not "image".
var imageProviders = map[string]bool{
	"giphy": true,
	"tenor": true,
	"imgur": true,
}

// UploadAttachment names a source attachment the coordinator should download
// and re-attach to the destination post.
type UploadAttachment struct {
	Filename    string
	URL         string
	ContentType string
}

// RenderedPost is the destination-message payload produced by the renderer.
// Uploads carries only pointers; the coordinator fetches the bodies.
type RenderedPost struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Uploads    []UploadAttachment
}

// RenderInput bundles everything the renderer reads. Message, author, and
// member may be nil; a nil message yields a partial rendering that only
// carries the point line and a placeholder embed.
type RenderInput struct {
	Original *models.Original
	Message  *discordgo.Message
	Author   *discordgo.User
	Member   *discordgo.Member
	Points   int
	Frozen   bool
	Premium  bool
}

// RenderContent renders just the line above the embed. Partial updates edit
// only this line and leave the embeds untouched.
func RenderContent(s *models.Settings, in *RenderInput, animated bool) string {
	var b strings.Builder
	b.WriteString(RenderEmoji(s.DisplayEmoji, animated))
	fmt.Fprintf(&b, " **%d |** <#%s>", in.Points, FormatSnowflake(in.Original.ChannelID))
	if s.PingAuthor {
		fmt.Fprintf(&b, " (<@%s>)", FormatSnowflake(in.Original.AuthorID))
	}
	if s.GoToMessage == models.GoToMessageMention {
		b.WriteString(" | ")
		b.WriteString(jumpURL(in.Original))
	}
	if in.Frozen {
		b.WriteString(" ❄️")
	}
	return b.String()
}

// RenderPost builds the full destination message for one resolved config.
func (c *Context) RenderPost(rc *ResolvedConfig, in *RenderInput) *RenderedPost {
	s := &rc.Settings
	animated := false
	if id := CustomEmojiID(s.DisplayEmoji); id != 0 {
		animated = c.Cache.IsEmojiAnimated(rc.Starboard.GuildID, id)
	}

	out := &RenderedPost{
		Content: RenderContent(s, in, animated),
	}
	out.Embeds = append(out.Embeds, c.primaryEmbed(s, in))

	if s.ExtraEmbeds && in.Message != nil {
		for _, e := range in.Message.Embeds {
			if len(out.Embeds) > maxExtraEmbeds {
				break
			}
			if isImageOnlyEmbed(e) {
				continue
			}
			out.Embeds = append(out.Embeds, e)
		}
	}

	// Files that cannot land in an embed ride along as uploads on premium
	// guilds; everyone still gets the attachment list's text links.
	if in.Premium && in.Message != nil {
		for _, a := range in.Message.Attachments {
			if isImageAttachment(a) {
				continue
			}
			out.Uploads = append(out.Uploads, UploadAttachment{
				Filename:    a.Filename,
				URL:         a.URL,
				ContentType: a.ContentType,
			})
		}
	}

	if s.GoToMessage == models.GoToMessageButton {
		out.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Style: discordgo.LinkButton,
						Label: "Go to message",
						URL:   jumpURL(in.Original),
					},
				},
			},
		}
	}
	return out
}

func (c *Context) primaryEmbed(s *models.Settings, in *RenderInput) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color:     s.Color,
		Timestamp: SnowflakeTime(in.Original.MessageID).Format("2006-01-02T15:04:05Z07:00"),
	}

	name, avatar := authorIdentity(s, in)
	embed.Author = &discordgo.MessageEmbedAuthor{Name: name, IconURL: avatar}

	if in.Message == nil {
		embed.Description = "*Original message was deleted or is unavailable.*"
		return embed
	}

	var desc strings.Builder
	if s.RepliedTo && in.Message.ReferencedMessage != nil {
		ref := in.Message.ReferencedMessage
		refText := ref.Content
		if refText == "" {
			refText = "*no text content*"
		}
		fmt.Fprintf(&desc, "**Replying to %s:**\n> %s\n\n", ref.Author.Username, truncate(refText, 256))
	}
	desc.WriteString(messageText(in.Message))
	embed.Description = truncate(desc.String(), embedDescriptionLimit)

	if url := primaryImageURL(in.Message); url != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: url}
	}

	if s.AttachmentsList && len(in.Message.Attachments) > 0 {
		var lines []string
		for _, a := range in.Message.Attachments {
			lines = append(lines, fmt.Sprintf("[%s](%s)", a.Filename, a.URL))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Attachments",
			Value: truncate(strings.Join(lines, "\n"), 1024),
		})
	}

	if s.GoToMessage == models.GoToMessageLink {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Original",
			Value: fmt.Sprintf("[Go to message](%s)", jumpURL(in.Original)),
		})
	}
	return embed
}

// messageText is the content plus sticker fallbacks. Lottie stickers have no
// image URL, so they become text lines; raster stickers render as an image
// URL only when nothing else claims the image slot.
func messageText(msg *discordgo.Message) string {
	text := msg.Content
	for _, st := range msg.StickerItems {
		if st.FormatType == discordgo.StickerFormatTypeLottie {
			if text != "" {
				text += "\n"
			}
			text += fmt.Sprintf("*Sticker: %s*", st.Name)
		}
	}
	if text == "" {
		text = "*no text content*"
	}
	return text
}

func authorIdentity(s *models.Settings, in *RenderInput) (string, string) {
	if in.Author == nil {
		return "Unknown User", ""
	}
	name := in.Author.Username
	avatar := in.Author.AvatarURL("")
	if s.UseServerProfile && in.Member != nil {
		if in.Member.Nick != "" {
			name = in.Member.Nick
		}
		if in.Member.Avatar != "" {
			avatar = in.Member.AvatarURL("")
		}
	}
	return name, avatar
}

// primaryImageURL picks the image for the primary embed: image attachments
// first, then image-only link embeds, then raster stickers.
func primaryImageURL(msg *discordgo.Message) string {
	for _, a := range msg.Attachments {
		if isImageAttachment(a) {
			return a.URL
		}
	}
	for _, e := range msg.Embeds {
		if !isImageOnlyEmbed(e) {
			continue
		}
		if e.Image != nil && e.Image.URL != "" {
			return e.Image.URL
		}
		if e.Thumbnail != nil && e.Thumbnail.URL != "" {
			return e.Thumbnail.URL
		}
		if e.Type == discordgo.EmbedTypeImage && e.URL != "" {
			return e.URL
		}
	}
	for _, st := range msg.StickerItems {
		if st.FormatType != discordgo.StickerFormatTypeLottie {
			return fmt.Sprintf("https://cdn.discordapp.com/stickers/%s.png", st.ID)
		}
	}
	return ""
}

func isImageAttachment(a *discordgo.MessageAttachment) bool {
	if strings.HasPrefix(a.ContentType, "image/") {
		return true
	}
	lower := strings.ToLower(a.Filename)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// isImageOnlyEmbed reports whether an embed carries nothing but an image,
// like the auto-embeds for direct image links and gif providers.
func isImageOnlyEmbed(e *discordgo.MessageEmbed) bool {
	if e.Type == discordgo.EmbedTypeImage || e.Type == discordgo.EmbedTypeGifv {
		return true
	}
	if e.Provider != nil && imageProviders[strings.ToLower(e.Provider.Name)] {
		return true
	}
	return e.Title == "" && e.Description == "" && len(e.Fields) == 0 &&
		(e.Image != nil || e.Thumbnail != nil)
}

// MessageHasImage reports whether a message carries at least one image,
// counting image attachments, image-only embeds, and raster stickers.
func MessageHasImage(msg *discordgo.Message) bool {
	if msg == nil {
		return false
	}
	return primaryImageURL(msg) != ""
}

// ThreadName produces the forum thread title for a destination post.
func ThreadName(in *RenderInput) string {
	name := "Starred message"
	if in.Author != nil {
		name = fmt.Sprintf("Starred message from %s", in.Author.Username)
	}
	if in.Message != nil && in.Message.Content != "" {
		name = in.Message.Content
	}
	name = strings.ReplaceAll(name, "\n", " ")
	return truncate(name, forumThreadNameLimit)
}

func jumpURL(o *models.Original) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s",
		FormatSnowflake(o.GuildID), FormatSnowflake(o.ChannelID), FormatSnowflake(o.MessageID))
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
