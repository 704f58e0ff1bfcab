package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"starboard-bot/core"
	"starboard-bot/database"
)

// Register selects the tone of user-facing failure text. Chat replies get
// conversational phrasing, web forms get terse labels; both are produced
// from the same typed errors so the two surfaces never drift apart.
type Register int

const (
	RegisterBot Register = iota
	RegisterWeb
)

// ErrorText renders a failure for one register. Unrecognized errors pass
// through as-is; the store and engine already phrase those for humans.
func ErrorText(reg Register, err error) string {
	var cerr *core.CooldownError
	switch {
	case errors.As(err, &cerr):
		retry := cerr.Retry.Round(time.Second)
		if reg == RegisterWeb {
			return fmt.Sprintf("Rate limited. Retry in %s.", retry)
		}
		return fmt.Sprintf("You're doing that too fast. Try again in %s.", retry)
	case errors.Is(err, core.ErrRecountBusy):
		if reg == RegisterWeb {
			return "A recount is already in progress."
		}
		return "Hold on, a recount for that message is already running."
	case errors.Is(err, core.ErrMessageFrozen):
		if reg == RegisterWeb {
			return "Votes for this message are frozen."
		}
		return "That message is frozen, so its votes can't change. Unfreeze it first."
	case errors.Is(err, database.ErrNotFound):
		if reg == RegisterWeb {
			return "Not found."
		}
		return "I couldn't find that."
	case errors.Is(err, database.ErrDuplicate):
		if reg == RegisterWeb {
			return "Already exists."
		}
		return "That already exists."
	case errors.Is(err, database.ErrLimit):
		if reg == RegisterWeb {
			return fmt.Sprintf("Limit reached: %v.", err)
		}
		return fmt.Sprintf("You've hit a limit: %v.", err)
	}
	if reg == RegisterWeb {
		return err.Error()
	}
	return fmt.Sprintf("Something went wrong: %v", err)
}

// BotErrorText renders a failure for a chat reply.
func BotErrorText(err error) string { return ErrorText(RegisterBot, err) }

// WebErrorText renders a failure for a plain web form.
func WebErrorText(err error) string { return ErrorText(RegisterWeb, err) }

// Respond sends an ephemeral interaction reply.
func Respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// RespondError sends an ephemeral error reply in the bot register.
func RespondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	Respond(s, i, BotErrorText(err))
}

// Deferred acknowledges an interaction so a slow operation can follow up.
func Deferred(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// FollowUp sends the follow-up message after a deferred acknowledgement.
func FollowUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}
