package handlers

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"starboard-bot/bot"
	"starboard-bot/core"
)

// Structural cache maintenance: these handlers keep the guild-shaped cache
// in sync with the gateway so the hot paths never fetch channels, roles, or
// emojis over REST.

func GuildCreate(b *bot.Bot) func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if err := b.Ctx.Cache.PutGuild(g.Guild); err != nil {
			b.Log.Warn("caching guild failed", zap.String("guild", g.ID), zap.Error(err))
		}
	}
}

func GuildDelete(b *bot.Bot) func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(s *discordgo.Session, g *discordgo.GuildDelete) {
		guildID, err := core.ParseSnowflake(g.ID)
		if err != nil {
			return
		}
		b.Ctx.Cache.RemoveGuild(guildID)
	}
}

func putChannel(b *bot.Bot, ch *discordgo.Channel) {
	guildID, err := core.ParseSnowflake(ch.GuildID)
	if err != nil {
		return
	}
	if err := b.Ctx.Cache.PutChannel(guildID, ch); err != nil {
		b.Log.Warn("caching channel failed", zap.String("channel", ch.ID), zap.Error(err))
	}
}

func removeChannel(b *bot.Bot, ch *discordgo.Channel) {
	guildID, err := core.ParseSnowflake(ch.GuildID)
	if err != nil {
		return
	}
	channelID, err := core.ParseSnowflake(ch.ID)
	if err != nil {
		return
	}
	b.Ctx.Cache.RemoveChannel(guildID, channelID)
}

func ChannelCreate(b *bot.Bot) func(s *discordgo.Session, c *discordgo.ChannelCreate) {
	return func(s *discordgo.Session, c *discordgo.ChannelCreate) { putChannel(b, c.Channel) }
}

func ChannelUpdate(b *bot.Bot) func(s *discordgo.Session, c *discordgo.ChannelUpdate) {
	return func(s *discordgo.Session, c *discordgo.ChannelUpdate) { putChannel(b, c.Channel) }
}

func ChannelDelete(b *bot.Bot) func(s *discordgo.Session, c *discordgo.ChannelDelete) {
	return func(s *discordgo.Session, c *discordgo.ChannelDelete) { removeChannel(b, c.Channel) }
}

func ThreadCreate(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadCreate) {
	return func(s *discordgo.Session, t *discordgo.ThreadCreate) { putChannel(b, t.Channel) }
}

func ThreadUpdate(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadUpdate) {
	return func(s *discordgo.Session, t *discordgo.ThreadUpdate) { putChannel(b, t.Channel) }
}

func ThreadDelete(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadDelete) {
	return func(s *discordgo.Session, t *discordgo.ThreadDelete) { removeChannel(b, t.Channel) }
}

func ThreadListSync(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadListSync) {
	return func(s *discordgo.Session, t *discordgo.ThreadListSync) {
		for _, th := range t.Threads {
			putChannel(b, th)
		}
	}
}

func RoleCreate(b *bot.Bot) func(s *discordgo.Session, r *discordgo.GuildRoleCreate) {
	return func(s *discordgo.Session, r *discordgo.GuildRoleCreate) {
		guildID, err := core.ParseSnowflake(r.GuildID)
		if err != nil {
			return
		}
		if err := b.Ctx.Cache.PutRole(guildID, r.Role); err != nil {
			b.Log.Warn("caching role failed", zap.String("role", r.Role.ID), zap.Error(err))
		}
	}
}

func RoleUpdate(b *bot.Bot) func(s *discordgo.Session, r *discordgo.GuildRoleUpdate) {
	return func(s *discordgo.Session, r *discordgo.GuildRoleUpdate) {
		guildID, err := core.ParseSnowflake(r.GuildID)
		if err != nil {
			return
		}
		if err := b.Ctx.Cache.PutRole(guildID, r.Role); err != nil {
			b.Log.Warn("caching role failed", zap.String("role", r.Role.ID), zap.Error(err))
		}
	}
}

func RoleDelete(b *bot.Bot) func(s *discordgo.Session, r *discordgo.GuildRoleDelete) {
	return func(s *discordgo.Session, r *discordgo.GuildRoleDelete) {
		guildID, err := core.ParseSnowflake(r.GuildID)
		if err != nil {
			return
		}
		roleID, err := core.ParseSnowflake(r.RoleID)
		if err != nil {
			return
		}
		b.Ctx.Cache.RemoveRole(guildID, roleID)
	}
}

func EmojisUpdate(b *bot.Bot) func(s *discordgo.Session, e *discordgo.GuildEmojisUpdate) {
	return func(s *discordgo.Session, e *discordgo.GuildEmojisUpdate) {
		guildID, err := core.ParseSnowflake(e.GuildID)
		if err != nil {
			return
		}
		if err := b.Ctx.Cache.SetEmojis(guildID, e.Emojis); err != nil {
			b.Log.Warn("caching emojis failed", zap.String("guild", e.GuildID), zap.Error(err))
		}
	}
}
