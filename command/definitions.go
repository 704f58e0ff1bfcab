package command

import (
	"github.com/bwmarrin/discordgo"

	"starboard-bot/bot"
)

// All returns every command instance for registration.
func All() []bot.Command {
	return []bot.Command{
		&ForceCommand{},
		&UnforceCommand{},
		&TrashCommand{},
		&UntrashCommand{},
		&FreezeCommand{},
		&UnfreezeCommand{},
		&RefreshCommand{},
		&RecountCommand{},
		&MoveLockCommand{},
	}
}

func messageOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "message",
		Description: "The id or link of the message",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    required,
	}
}

func starboardOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "starboard",
		Description: "Limit the action to one starboard by name",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    false,
	}
}

// ForceCommand pins a message to one or all starboards.
type ForceCommand struct{}

func (c *ForceCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "force",
		Description: "Force a message onto a starboard, bypassing requirements",
		Options: []*discordgo.ApplicationCommandOption{
			messageOption(true),
			starboardOption(),
		},
	}
}

// UnforceCommand reverses a force.
type UnforceCommand struct{}

func (c *UnforceCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "unforce",
		Description: "Stop forcing a message onto a starboard",
		Options: []*discordgo.ApplicationCommandOption{
			messageOption(true),
			starboardOption(),
		},
	}
}

// TrashCommand removes a message's posts and keeps them removed.
type TrashCommand struct{}

func (c *TrashCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "trash",
		Description: "Remove a message from all starboards until untrashed",
		Options: []*discordgo.ApplicationCommandOption{
			messageOption(true),
			{
				Name:        "reason",
				Description: "Why the message is being trashed",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    false,
			},
		},
	}
}

// UntrashCommand reverses a trash.
type UntrashCommand struct{}

func (c *UntrashCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "untrash",
		Description: "Allow a trashed message back onto starboards",
		Options: []*discordgo.ApplicationCommandOption{
			messageOption(true),
		},
	}
}

// FreezeCommand stops vote movement on a message.
type FreezeCommand struct{}

func (c *FreezeCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "freeze",
		Description: "Freeze a message's vote count",
		Options: []*discordgo.ApplicationCommandOption{
			messageOption(true),
		},
	}
}

// UnfreezeCommand reverses a freeze.
type UnfreezeCommand struct{}

func (c *UnfreezeCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "unfreeze",
		Description: "Unfreeze a message's vote count",
		Options: []*discordgo.ApplicationCommandOption{
			messageOption(true),
		},
	}
}

// RefreshCommand re-runs the post decision for one message.
type RefreshCommand struct{}

func (c *RefreshCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "refresh",
		Description: "Re-run starboard decisions for a message",
		Options: []*discordgo.ApplicationCommandOption{
			messageOption(true),
		},
	}
}

// RecountCommand re-enumerates reactions and rebuilds votes.
type RecountCommand struct{}

func (c *RecountCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "recount",
		Description: "Recount all reactions on a message",
		Options: []*discordgo.ApplicationCommandOption{
			messageOption(true),
		},
	}
}

// MoveLockCommand transfers a premium lock between entities.
type MoveLockCommand struct{}

func (c *MoveLockCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "movelock",
		Description: "Move a premium lock between two starboards or autostar channels",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "kind",
				Description: "The kind of entity",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Starboard", Value: "starboard"},
					{Name: "Autostar channel", Value: "autostar"},
				},
			},
			{
				Name:        "from",
				Description: "The unlocked entity that will take the lock",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    true,
			},
			{
				Name:        "to",
				Description: "The locked entity that will be freed",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    true,
			},
		},
	}
}
