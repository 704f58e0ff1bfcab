package command

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"starboard-bot/bot"
	"starboard-bot/core"
	"starboard-bot/database"
	"starboard-bot/utils"
)

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// parseMessageRef accepts a raw message id or a full message link. Links
// carry their own channel; bare ids use the channel the command ran in.
func parseMessageRef(raw, fallbackChannel string) (channelID, messageID int64, err error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "/channels/") {
		parts := strings.Split(raw, "/")
		if len(parts) < 2 {
			return 0, 0, fmt.Errorf("malformed message link")
		}
		channelID, err = core.ParseSnowflake(parts[len(parts)-2])
		if err != nil {
			return 0, 0, fmt.Errorf("malformed message link")
		}
		messageID, err = core.ParseSnowflake(parts[len(parts)-1])
		if err != nil {
			return 0, 0, fmt.Errorf("malformed message link")
		}
		return channelID, messageID, nil
	}
	messageID, err = core.ParseSnowflake(raw)
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a message id or link", raw)
	}
	channelID, err = core.ParseSnowflake(fallbackChannel)
	return channelID, messageID, err
}

type messageTarget struct {
	guildID   int64
	channelID int64
	messageID int64
}

func target(i *discordgo.InteractionCreate) (*messageTarget, error) {
	opts := optionMap(i)
	raw, ok := opts["message"]
	if !ok {
		return nil, fmt.Errorf("missing message option")
	}
	guildID, err := core.ParseSnowflake(i.GuildID)
	if err != nil {
		return nil, err
	}
	channelID, messageID, err := parseMessageRef(raw.StringValue(), i.ChannelID)
	if err != nil {
		return nil, err
	}
	return &messageTarget{guildID: guildID, channelID: channelID, messageID: messageID}, nil
}

// starboardArg resolves the optional starboard-name option to an id.
func starboardArg(b *bot.Bot, i *discordgo.InteractionCreate, guildID int64) (*int64, error) {
	opt, ok := optionMap(i)["starboard"]
	if !ok {
		return nil, nil
	}
	sb, err := database.GetStarboardByName(b.Ctx.DB, guildID, opt.StringValue())
	if err != nil {
		return nil, fmt.Errorf("no starboard named %q", opt.StringValue())
	}
	return &sb.ID, nil
}

// run defers the interaction, executes op in the background, and follows up
// with the result.
func run(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, success string, op func() error) {
	utils.Deferred(s, i)
	done := b.Ctx.Track()
	go func() {
		defer done()
		if err := op(); err != nil {
			utils.FollowUp(s, i, utils.BotErrorText(err))
			return
		}
		utils.FollowUp(s, i, success)
	}()
}

func (c *ForceCommand) Handler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	t, err := target(i)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	sbID, err := starboardArg(b, i, t.guildID)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	run(b, s, i, "Message forced.", func() error {
		return b.Ctx.Force(t.guildID, t.channelID, t.messageID, sbID)
	})
}

func (c *UnforceCommand) Handler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	t, err := target(i)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	sbID, err := starboardArg(b, i, t.guildID)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	run(b, s, i, "Message unforced.", func() error {
		return b.Ctx.Unforce(t.guildID, t.messageID, sbID)
	})
}

func (c *TrashCommand) Handler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	t, err := target(i)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	var reason *string
	if opt, ok := optionMap(i)["reason"]; ok {
		r := opt.StringValue()
		reason = &r
	}
	run(b, s, i, "Message trashed.", func() error {
		return b.Ctx.Trash(t.guildID, t.channelID, t.messageID, reason)
	})
}

func (c *UntrashCommand) Handler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	t, err := target(i)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	run(b, s, i, "Message untrashed.", func() error {
		return b.Ctx.Untrash(t.messageID)
	})
}

func (c *FreezeCommand) Handler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	t, err := target(i)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	run(b, s, i, "Message frozen.", func() error {
		return b.Ctx.Freeze(t.guildID, t.channelID, t.messageID)
	})
}

func (c *UnfreezeCommand) Handler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	t, err := target(i)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	run(b, s, i, "Message unfrozen.", func() error {
		return b.Ctx.Unfreeze(t.messageID)
	})
}

func (c *RefreshCommand) Handler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	t, err := target(i)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	run(b, s, i, "Message refreshed.", func() error {
		return b.Ctx.Refresh(t.messageID, true)
	})
}

func (c *RecountCommand) Handler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	t, err := target(i)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	run(b, s, i, "Recount complete.", func() error {
		return b.Ctx.Recount(t.guildID, t.channelID, t.messageID)
	})
}

func (c *MoveLockCommand) Handler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	guildID, err := core.ParseSnowflake(i.GuildID)
	if err != nil {
		utils.RespondError(s, i, err)
		return
	}
	kind := opts["kind"].StringValue()
	from := opts["from"].IntValue()
	to := opts["to"].IntValue()
	run(b, s, i, "Premium lock moved.", func() error {
		return b.Ctx.MovePremiumLock(guildID, kind, from, to)
	})
}
