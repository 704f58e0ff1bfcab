package handlers

import (
	"github.com/bwmarrin/discordgo"

	"starboard-bot/bot"
)

// InteractionCreate handles slash command interactions.
func InteractionCreate(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		cmd, ok := b.Commands[i.ApplicationCommandData().Name]
		if !ok {
			return
		}
		cmd.Handler(b, s, i)
	}
}
