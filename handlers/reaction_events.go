package handlers

import (
	"encoding/json"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"starboard-bot/bot"
	"starboard-bot/core"
)

func reactionEvent(r *discordgo.MessageReaction, member *discordgo.Member) (*core.ReactionEvent, error) {
	guildID, err := core.ParseSnowflake(r.GuildID)
	if err != nil {
		return nil, err
	}
	channelID, err := core.ParseSnowflake(r.ChannelID)
	if err != nil {
		return nil, err
	}
	messageID, err := core.ParseSnowflake(r.MessageID)
	if err != nil {
		return nil, err
	}
	userID, err := core.ParseSnowflake(r.UserID)
	if err != nil {
		return nil, err
	}
	return &core.ReactionEvent{
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     r.Emoji.APIName(),
		Member:    member,
	}, nil
}

// ReactionAdd feeds added reactions into vote ingestion.
func ReactionAdd(b *bot.Bot) func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r.GuildID == "" || r.UserID == s.State.User.ID {
			return
		}
		ev, err := reactionEvent(r.MessageReaction, r.Member)
		if err != nil {
			return
		}
		done := b.Ctx.Track()
		go func() {
			defer done()
			if err := b.Ctx.HandleReactionAdd(ev); err != nil {
				b.Log.Error("reaction add handling failed",
					zap.Int64("message", ev.MessageID), zap.Error(err))
			}
		}()
	}
}

// ReactionRemove feeds removed reactions into vote ingestion.
func ReactionRemove(b *bot.Bot) func(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
		if r.GuildID == "" || r.UserID == s.State.User.ID {
			return
		}
		ev, err := reactionEvent(r.MessageReaction, nil)
		if err != nil {
			return
		}
		done := b.Ctx.Track()
		go func() {
			defer done()
			if err := b.Ctx.HandleReactionRemove(ev); err != nil {
				b.Log.Error("reaction remove handling failed",
					zap.Int64("message", ev.MessageID), zap.Error(err))
			}
		}()
	}
}

// ReactionRemoveAll clears an original's votes after a moderator wipe.
func ReactionRemoveAll(b *bot.Bot) func(s *discordgo.Session, r *discordgo.MessageReactionRemoveAll) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionRemoveAll) {
		if r.GuildID == "" {
			return
		}
		guildID, err := core.ParseSnowflake(r.GuildID)
		if err != nil {
			return
		}
		channelID, err := core.ParseSnowflake(r.ChannelID)
		if err != nil {
			return
		}
		messageID, err := core.ParseSnowflake(r.MessageID)
		if err != nil {
			return
		}
		done := b.Ctx.Track()
		go func() {
			defer done()
			if err := b.Ctx.HandleReactionRemoveAll(guildID, channelID, messageID); err != nil {
				b.Log.Error("reaction remove-all handling failed",
					zap.Int64("message", messageID), zap.Error(err))
			}
		}()
	}
}

// rawRemoveEmoji is the MESSAGE_REACTION_REMOVE_EMOJI payload, which the
// library does not surface as a typed event.
type rawRemoveEmoji struct {
	ChannelID string          `json:"channel_id"`
	GuildID   string          `json:"guild_id"`
	MessageID string          `json:"message_id"`
	Emoji     discordgo.Emoji `json:"emoji"`
}

// RawEvent picks up gateway events without typed handlers.
func RawEvent(b *bot.Bot) func(s *discordgo.Session, e *discordgo.Event) {
	return func(s *discordgo.Session, e *discordgo.Event) {
		if e.Type != "MESSAGE_REACTION_REMOVE_EMOJI" {
			return
		}
		var payload rawRemoveEmoji
		if err := json.Unmarshal(e.RawData, &payload); err != nil || payload.GuildID == "" {
			return
		}
		guildID, err := core.ParseSnowflake(payload.GuildID)
		if err != nil {
			return
		}
		channelID, err := core.ParseSnowflake(payload.ChannelID)
		if err != nil {
			return
		}
		messageID, err := core.ParseSnowflake(payload.MessageID)
		if err != nil {
			return
		}
		emoji := payload.Emoji.APIName()
		done := b.Ctx.Track()
		go func() {
			defer done()
			if err := b.Ctx.HandleReactionRemoveEmoji(guildID, channelID, messageID, emoji); err != nil {
				b.Log.Error("reaction remove-emoji handling failed",
					zap.Int64("message", messageID), zap.Error(err))
			}
		}()
	}
}
