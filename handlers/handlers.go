package handlers

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"starboard-bot/bot"
)

// Register all handlers to the bot.
func Register(b *bot.Bot) {
	// Interactions and vote ingestion.
	b.Session.AddHandler(InteractionCreate(b))
	b.Session.AddHandler(ReactionAdd(b))
	b.Session.AddHandler(ReactionRemove(b))
	b.Session.AddHandler(ReactionRemoveAll(b))
	b.Session.AddHandler(RawEvent(b))

	// Message lifecycle.
	b.Session.AddHandler(MessageCreate(b))
	b.Session.AddHandler(MessageUpdate(b))
	b.Session.AddHandler(MessageDelete(b))
	b.Session.AddHandler(MessageDeleteBulk(b))

	// Structural cache maintenance.
	b.Session.AddHandler(GuildCreate(b))
	b.Session.AddHandler(GuildDelete(b))
	b.Session.AddHandler(ChannelCreate(b))
	b.Session.AddHandler(ChannelUpdate(b))
	b.Session.AddHandler(ChannelDelete(b))
	b.Session.AddHandler(ThreadCreate(b))
	b.Session.AddHandler(ThreadUpdate(b))
	b.Session.AddHandler(ThreadDelete(b))
	b.Session.AddHandler(ThreadListSync(b))
	b.Session.AddHandler(RoleCreate(b))
	b.Session.AddHandler(RoleUpdate(b))
	b.Session.AddHandler(RoleDelete(b))
	b.Session.AddHandler(EmojisUpdate(b))

	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.Log.Info("logged in",
			zap.String("user", s.State.User.Username),
			zap.Int("guilds", len(r.Guilds)))
	})
}
