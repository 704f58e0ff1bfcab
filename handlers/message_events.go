package handlers

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"starboard-bot/bot"
	"starboard-bot/core"
)

// MessageCreate routes fresh messages through the autostar pipeline.
func MessageCreate(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.GuildID == "" || m.Author == nil || m.Author.ID == s.State.User.ID {
			return
		}
		guildID, err := core.ParseSnowflake(m.GuildID)
		if err != nil {
			return
		}
		channelID, err := core.ParseSnowflake(m.ChannelID)
		if err != nil {
			return
		}
		msg := m.Message
		done := b.Ctx.Track()
		go func() {
			defer done()
			if err := b.Ctx.HandleAutostarMessage(guildID, channelID, msg); err != nil {
				b.Log.Error("autostar handling failed",
					zap.String("message", msg.ID), zap.Error(err))
			}
		}()
	}
}

// MessageUpdate re-renders linked destination posts after an edit.
func MessageUpdate(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageUpdate) {
	return func(s *discordgo.Session, m *discordgo.MessageUpdate) {
		if m.GuildID == "" {
			return
		}
		guildID, err := core.ParseSnowflake(m.GuildID)
		if err != nil {
			return
		}
		channelID, err := core.ParseSnowflake(m.ChannelID)
		if err != nil {
			return
		}
		messageID, err := core.ParseSnowflake(m.ID)
		if err != nil {
			return
		}
		done := b.Ctx.Track()
		go func() {
			defer done()
			if err := b.Ctx.HandleMessageEdit(guildID, channelID, messageID); err != nil {
				b.Log.Error("message edit handling failed",
					zap.Int64("message", messageID), zap.Error(err))
			}
		}()
	}
}

// MessageDelete applies deletion policies to originals and destination posts.
func MessageDelete(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageDelete) {
	return func(s *discordgo.Session, m *discordgo.MessageDelete) {
		if m.GuildID == "" {
			return
		}
		guildID, err := core.ParseSnowflake(m.GuildID)
		if err != nil {
			return
		}
		channelID, err := core.ParseSnowflake(m.ChannelID)
		if err != nil {
			return
		}
		messageID, err := core.ParseSnowflake(m.ID)
		if err != nil {
			return
		}
		done := b.Ctx.Track()
		go func() {
			defer done()
			if err := b.Ctx.HandleMessageDelete(guildID, channelID, messageID); err != nil {
				b.Log.Error("message delete handling failed",
					zap.Int64("message", messageID), zap.Error(err))
			}
		}()
	}
}

// MessageDeleteBulk folds a purge into per-message deletion handling.
func MessageDeleteBulk(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
	return func(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
		if m.GuildID == "" {
			return
		}
		guildID, err := core.ParseSnowflake(m.GuildID)
		if err != nil {
			return
		}
		channelID, err := core.ParseSnowflake(m.ChannelID)
		if err != nil {
			return
		}
		ids := make([]int64, 0, len(m.Messages))
		for _, raw := range m.Messages {
			id, err := core.ParseSnowflake(raw)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		done := b.Ctx.Track()
		go func() {
			defer done()
			if err := b.Ctx.HandleMessageBulkDelete(guildID, channelID, ids); err != nil {
				b.Log.Error("bulk delete handling failed", zap.Error(err))
			}
		}()
	}
}
